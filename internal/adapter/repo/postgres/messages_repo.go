package postgres

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// MessageRepo stores the append-only transcript. Seq is allocated in the
// insert itself; concurrent appends to one session are serialised by the
// turn lock and the (session_id, seq) unique key.
type MessageRepo struct{ Pool PgxPool }

// NewMessageRepo constructs a MessageRepo with the given pool.
func NewMessageRepo(p PgxPool) *MessageRepo { return &MessageRepo{Pool: p} }

// Append inserts m and returns it with ID and Seq filled in.
func (r *MessageRepo) Append(ctx domain.Context, m domain.ChatMessage) (domain.ChatMessage, error) {
	ctx, span := otel.Tracer("repo.messages").Start(ctx, "messages.Append")
	defer span.End()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	q := `INSERT INTO chat_messages (id, session_id, seq, sender, content, sent_at, question_index, score, evaluation)
	SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6, $7, $8 FROM chat_messages WHERE session_id=$2
	RETURNING seq`
	if err := r.Pool.QueryRow(ctx, q, m.ID, m.SessionID, m.Sender, m.Content, m.Timestamp, m.QuestionIndex, m.Score, m.Evaluation).Scan(&m.Seq); err != nil {
		return domain.ChatMessage{}, mapErr("message.append", err)
	}
	return m, nil
}

// List returns the transcript ordered by Seq.
func (r *MessageRepo) List(ctx domain.Context, sessionID string) ([]domain.ChatMessage, error) {
	ctx, span := otel.Tracer("repo.messages").Start(ctx, "messages.List")
	defer span.End()
	q := `SELECT id, session_id, seq, sender, content, sent_at, question_index, score, evaluation
	FROM chat_messages WHERE session_id=$1 ORDER BY seq`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, mapErr("message.list", err)
	}
	defer rows.Close()
	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &m.Sender, &m.Content, &m.Timestamp, &m.QuestionIndex, &m.Score, &m.Evaluation); err != nil {
			return nil, mapErr("message.list", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("message.list", err)
	}
	return out, nil
}

// Count returns the number of messages of a session.
func (r *MessageRepo) Count(ctx domain.Context, sessionID string) (int, error) {
	ctx, span := otel.Tracer("repo.messages").Start(ctx, "messages.Count")
	defer span.End()
	var n int
	if err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM chat_messages WHERE session_id=$1`, sessionID).Scan(&n); err != nil {
		return 0, mapErr("message.count", err)
	}
	return n, nil
}
