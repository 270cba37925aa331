package httpserver

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaultsAndOptions(t *testing.T) {
	srv := New(":0", http.NotFoundHandler())
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Equal(t, readTimeout, srv.ReadTimeout)
	assert.Zero(t, srv.WriteTimeout)
	assert.Nil(t, srv.ErrorLog)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	srv = New(":0", http.NotFoundHandler(), WithReadTimeout(10*time.Second), WithReadTimeout(0), WithLogger(logger))
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	require.NotNil(t, srv.ErrorLog)

	srv.ErrorLog.Print("accept failed")
	assert.Contains(t, buf.String(), "accept failed")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestListenAndServeIgnoresShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(srv) }()

	// Shutdown may run before the listener is up; ListenAndServe then
	// returns ErrServerClosed immediately, which is also swallowed.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
