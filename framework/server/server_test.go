package server_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/km-arc/katapult/framework/server"
)

var hello = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("hello"))
})

func TestServer_StartServeShutdown(t *testing.T) {
	s := server.New(zaptest.NewLogger(t))
	s.Listen("127.0.0.1:0")

	var events []string
	s.OnStart(func(context.Context) error {
		events = append(events, "start")
		return nil
	})
	s.OnStop(func(context.Context) error {
		events = append(events, "stop")
		return nil
	})

	require.NoError(t, s.Start(context.Background(), hello))
	addrs := s.Addrs()
	require.Len(t, addrs, 1)

	resp, err := http.Get("http://" + addrs[0].String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, []string{"start", "stop"}, events)
}

func TestServer_NoListeners(t *testing.T) {
	s := server.New(nil)
	assert.ErrorIs(t, s.Start(context.Background(), hello), server.ErrNoListeners)
}

func TestServer_StartTwice(t *testing.T) {
	s := server.New(nil)
	s.Listen("127.0.0.1:0")
	require.NoError(t, s.Start(context.Background(), hello))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	assert.ErrorIs(t, s.Start(context.Background(), hello), server.ErrStarted)
}

func TestServer_StartHookFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	s := server.New(nil)
	s.Listen("127.0.0.1:0")
	s.OnStart(func(context.Context) error { return boom })
	stopped := false
	s.OnStop(func(context.Context) error {
		stopped = true
		return nil
	})

	err := s.Start(context.Background(), hello)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Addrs())
	assert.True(t, stopped, "stop hooks release what earlier start hooks began")
}

func TestServer_ListenFailureRunsNoHooks(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	s := server.New(nil)
	s.Listen(taken.Addr().String())
	var events []string
	s.OnStart(func(context.Context) error {
		events = append(events, "start")
		return nil
	})
	s.OnStop(func(context.Context) error {
		events = append(events, "stop")
		return nil
	})

	require.Error(t, s.Start(context.Background(), hello))
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Empty(t, events)

	require.NoError(t, s.Release(context.Background()))
	assert.Equal(t, []string{"stop"}, events)
}

func TestServer_ListenFailureClosesOthers(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	s := server.New(nil)
	s.Listen("127.0.0.1:0")
	s.Listen(taken.Addr().String())

	err = s.Start(context.Background(), hello)
	require.Error(t, err)
	assert.Empty(t, s.Addrs())
	assert.Equal(t, []string{"127.0.0.1:0", taken.Addr().String()}, s.Listeners())
}

func TestServer_ShutdownWhenNotRunning(t *testing.T) {
	s := server.New(nil)
	stopped := false
	s.OnStop(func(context.Context) error {
		stopped = true
		return nil
	})

	assert.NoError(t, s.Shutdown(context.Background()))
	assert.False(t, stopped)
}
