package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validExam = "Here you go:\n```json\n" +
	`{"questions":[{"q":"2+2?","options":["1","2","3","4"],"answer":"4"},` +
	`{"q":"Capital of France?","options":["Paris","Rome","Berlin","Madrid"],"answer":"Paris"}]}` +
	"\n```\nGood luck."

const badExam = `{"questions":[{"q":"2+2?","options":["1","2","4"],"answer":"4"}]}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_ReportsEachFile(t *testing.T) {
	good := writeFile(t, "good.txt", validExam)
	bad := writeFile(t, "bad.json", badExam)

	out, err := run("validate", good, bad)
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, good+": ok (2 questions)")
	assert.Contains(t, out, bad+": invalid: item 1: 'options' must have at least 4 entries")
}

func TestValidate_JSONOutput(t *testing.T) {
	good := writeFile(t, "good.txt", validExam)

	out, err := run("validate", "--json", good)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"`+good+`","ok":true,"count":2}`, strings.TrimSpace(out))
}

func TestValidate_RequiresArgsAndReadableFiles(t *testing.T) {
	_, err := run("validate")
	assert.Error(t, err)

	_, err = run("validate", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read ")
}

func TestExtract(t *testing.T) {
	out, err := run("extract", writeFile(t, "resp.txt", validExam))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `{"questions":`))

	_, err = run("extract", writeFile(t, "none.txt", "no json here"))
	assert.ErrorContains(t, err, "no JSON object")
}
