package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		out = append(out, m)
	}
	return out
}

func TestFrom_AddsRunCorrelation(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithRun(context.Background(), "playwright", "iframe")
	ctx = WithCheck(ctx, "table headers")
	From(ctx).Info("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "playwright", lines[0]["driver"])
	assert.Equal(t, "iframe", lines[0]["container"])
	assert.Equal(t, "table headers", lines[0]["check"])
	assert.True(t, strings.HasPrefix(lines[0]["run_id"].(string), "run-"))
}

func TestWithRun_KeepsExistingRunID(t *testing.T) {
	ctx := WithCorrelation(context.Background(), Correlation{RunID: "run-fixed"})
	ctx = WithRun(ctx, "rod", "root")
	assert.Equal(t, "run-fixed", RunIDFromContext(ctx))
	assert.Equal(t, "unknown", RunIDFromContext(context.Background()))
}

func TestAccessLogMiddleware_LogsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()
	SetLevel(slog.LevelDebug)
	defer SetLevel(slog.LevelInfo)

	h := RequestContextMiddleware(AccessLogMiddleware("fixture", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	requestID := rec.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "http_access", lines[0]["msg"])
	assert.Equal(t, "/brew", lines[0]["path"])
	assert.EqualValues(t, http.StatusTeapot, lines[0]["status"])
	assert.EqualValues(t, len("short and stout"), lines[0]["resp_bytes"])
	assert.Equal(t, requestID, lines[0]["request_id"])
}
