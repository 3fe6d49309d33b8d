package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func sampleEvent() domain.SessionEvent {
	score := 80.0
	return domain.SessionEvent{
		Type:        domain.EventSessionCompleted,
		SessionID:   "sess-1",
		CandidateID: "cand-1",
		EmployerID:  "emp-1",
		VacancyID:   "vac-1",
		Status:      domain.SessionCompleted,
		Score:       &score,
		OccurredAt:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestBuildRecord(t *testing.T) {
	rec, err := buildRecord("events", sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "events", rec.Topic)
	assert.Equal(t, []byte("sess-1"), rec.Key)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, kgo.RecordHeader{Key: "event_type", Value: []byte("session.completed")}, rec.Headers[0])

	var got domain.SessionEvent
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestPublisher_Publish(t *testing.T) {
	fp := &fakeProducer{}
	p := newPublisher(fp, DefaultTopic)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, fp.records, 1)
	assert.Equal(t, DefaultTopic, fp.records[0].Topic)

	fp.err = errors.New("broker down")
	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "op=events.publish: broker down")

	p.Close()
	assert.True(t, fp.closed)
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	_, err := NewPublisher(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), sampleEvent()))
}

type fakeRequester struct {
	code int16
	err  error
	got  *kmsg.CreateTopicsRequest
}

func (f *fakeRequester) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got = req.(*kmsg.CreateTopicsRequest)
	resp := kmsg.NewPtrCreateTopicsResponse()
	t := kmsg.NewCreateTopicsResponseTopic()
	t.Topic = f.got.Topics[0].Topic
	t.ErrorCode = f.code
	resp.Topics = append(resp.Topics, t)
	return resp, nil
}

func TestCreateTopicIfNotExists(t *testing.T) {
	ctx := context.Background()

	r := &fakeRequester{}
	require.NoError(t, createTopicIfNotExists(ctx, r, "events", 3, 1))
	assert.Equal(t, int32(3), r.got.Topics[0].NumPartitions)

	r = &fakeRequester{code: kerr.TopicAlreadyExists.Code}
	assert.NoError(t, createTopicIfNotExists(ctx, r, "events", 3, 1))

	r = &fakeRequester{code: kerr.TopicAuthorizationFailed.Code}
	assert.ErrorIs(t, createTopicIfNotExists(ctx, r, "events", 3, 1), kerr.TopicAuthorizationFailed)

	assert.Error(t, createTopicIfNotExists(ctx, &fakeRequester{}, "", 3, 1))
	assert.Error(t, createTopicIfNotExists(ctx, &fakeRequester{}, "events", 0, 1))
	assert.ErrorContains(t, createTopicIfNotExists(ctx, &fakeRequester{err: errors.New("dial")}, "events", 1, 1), "request failed")
}
