package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echomw "invoice-bot/src/pkg/echo-middleware"
	"invoice-bot/src/pkg/telegram"
)

const updateBody = `{"update_id": 9, "message": {"message_id": 1, "date": 0, "chat": {"id": 42, "type": "private"}, "text": "1001"}}`

type updateRecorder struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	ctx     context.Context
}

func (r *updateRecorder) handle(ctx context.Context, update tgbotapi.Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	r.ctx = ctx
	return true
}

func newServer(t *testing.T, secret string) (*Server, *updateRecorder, context.Context) {
	t.Helper()
	recorder := &updateRecorder{}
	handlerCtx := context.WithValue(context.Background(), struct{}{}, "handler")
	return New(handlerCtx, echomw.DefaultValueConfig(), "/telegram/webhook", secret, recorder.handle), recorder, handlerCtx
}

func do(s *Server, method string, path string, body string, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(telegram.SecretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	s, recorder, handlerCtx := newServer(t, "s3cret")

	rec := do(s, http.MethodPost, "/telegram/webhook", updateBody, "s3cret")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, recorder.updates, 1)
	assert.Equal(t, "1001", recorder.updates[0].Message.Text)
	assert.Equal(t, handlerCtx, recorder.ctx, "handlers outlive the request")
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	s, recorder, _ := newServer(t, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodPost, "/telegram/webhook", updateBody, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodPost, "/telegram/webhook", updateBody, "guess").Code)
	assert.Empty(t, recorder.updates)
}

func TestWebhookRejectsBadBody(t *testing.T) {
	s, recorder, _ := newServer(t, "s3cret")

	rec := do(s, http.MethodPost, "/telegram/webhook", "{not json", "s3cret")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, recorder.updates)
}

func TestHealth(t *testing.T) {
	s, _, _ := newServer(t, "s3cret")

	rec := do(s, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestRunStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	cfg := echomw.DefaultValueConfig()
	cfg.Port = port
	s := New(context.Background(), cfg, "/telegram/webhook", "s3cret", (&updateRecorder{}).handle)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		done <- s.Run(ctx) == nil
	}()

	require.Eventually(t, func() bool {
		resp, getErr := http.Get("http://" + cfg.ListenAddress() + "/healthz")
		if getErr != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case clean := <-done:
		assert.True(t, clean)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
