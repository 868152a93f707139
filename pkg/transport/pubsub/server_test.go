package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/secmon/pkg/finding"
	"github.com/user/secmon/pkg/logging"
)

type handlerFunc func(ctx context.Context, body []byte) error

func (f handlerFunc) HandleEnvelope(ctx context.Context, body []byte) error { return f(ctx, body) }

func TestHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "processed", err: nil, want: http.StatusNoContent},
		{name: "malformed", err: fmt.Errorf("%w: bad", finding.ErrMalformedEvent), want: http.StatusBadRequest},
		{name: "analysis failed", err: errors.New("quota"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Handler(handlerFunc(func(ctx context.Context, body []byte) error {
				got = string(body)
				return tt.err
			}), logging.Discard())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":{}}`)))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, `{"message":{}}`, got)
		})
	}
}

func TestHandlerRejectsGet(t *testing.T) {
	h := Handler(handlerFunc(func(ctx context.Context, body []byte) error {
		t.Fatal("handler must not be called")
		return nil
	}), logging.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := Handler(handlerFunc(func(ctx context.Context, body []byte) error { return nil }), logging.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	h := Handler(handlerFunc(func(ctx context.Context, body []byte) error { return nil }),
		logging.New(&buf, "info", "json"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestHandlerRecoversFromPanic(t *testing.T) {
	h := Handler(handlerFunc(func(ctx context.Context, body []byte) error {
		panic("boom")
	}), logging.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, handlerFunc(func(ctx context.Context, body []byte) error { return nil }), logging.Discard())
	}()

	resp, err := http.Post("http://"+ln.Addr().String()+"/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after cancel")
	}
}

func TestServeListenError(t *testing.T) {
	err := Serve(context.Background(), "127.0.0.1:-1", handlerFunc(func(ctx context.Context, body []byte) error { return nil }), logging.Discard())
	assert.Error(t, err)
}
