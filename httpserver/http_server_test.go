/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-keysem/log/logtest"
)

func newTestConfig(addr string) *Config {
	cfg := NewDefaultConfig()
	cfg.Address = addr
	cfg.Timeouts.Shutdown = time.Second
	return cfg
}

func TestHTTPServer_StartStop(t *testing.T) {
	handler := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})
	logger := logtest.NewRecorder()
	srv := New(newTestConfig("127.0.0.1:0"), logger, handler)

	fatalErr := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		defer close(started)
		srv.Start(fatalErr)
	}()
	require.Eventually(t, func() bool { return srv.Port() != 0 }, 3*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(srv.Port()) + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(true))
	<-started
	require.Empty(t, fatalErr)
	_, found := logger.FindEntry("HTTP server closed")
	require.True(t, found)
}

func TestHTTPServer_StopNotGracefully(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewWithListener(newTestConfig(ln.Addr().String()), logtest.NewRecorder(), http.NotFoundHandler(), ln)

	fatalErr := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		defer close(started)
		srv.Start(fatalErr)
	}()
	require.Eventually(t, func() bool { return srv.Port() != 0 }, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, ln.Addr().(*net.TCPAddr).Port, srv.Port())

	require.NoError(t, srv.Stop(false))
	<-started
	require.Empty(t, fatalErr)
}

func TestHTTPServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	logger := logtest.NewRecorder()
	srv := New(newTestConfig(ln.Addr().String()), logger, http.NotFoundHandler())
	fatalErr := make(chan error, 1)
	srv.Start(fatalErr)

	require.Error(t, <-fatalErr)
	_, found := logger.FindEntry("HTTP server error")
	require.True(t, found)
}
