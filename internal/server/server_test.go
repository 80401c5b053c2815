package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost_Echo(t *testing.T) {
	f := setup(t, "/api", nil)
	h, err := Host(EngineEcho, f.h)
	require.NoError(t, err)

	rec := doReq(t, h, http.MethodPost, "/api/heartbeat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.EqualValues(t, 1, f.beats.n.Load())

	rec = doReq(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHost_Gin(t *testing.T) {
	f := setup(t, "/api", nil)
	h, err := Host("", f.h)
	require.NoError(t, err)
	assert.Same(t, f.h, h)

	_, err = Host("fasthttp", f.h)
	assert.Error(t, err)
}

func TestNewServer_Timeouts(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), nil)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.Nil(t, srv.TLSConfig)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := setup(t, "/api", nil)
	srv := NewServer("127.0.0.1:0", f.h, nil)
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, srv, nil, func(a net.Addr) { addrCh <- a }) }()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("serve failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Post("http://"+addr.String()+"/api/heartbeat", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	srv := NewServer(ln.Addr().String(), http.NotFoundHandler(), nil)
	err = Serve(context.Background(), srv, nil, nil)
	assert.ErrorContains(t, err, "listen")
}
