package jmap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnector_Defaults(t *testing.T) {
	c := NewConnector(Config{})
	assert.Equal(t, DefaultSessionURL, c.cfg.SessionURL)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.NotNil(t, c.cfg.Transport)
	assert.NotNil(t, c.cfg.Logger)
}

func TestConnect_EmptyToken(t *testing.T) {
	c := NewConnector(Config{SessionURL: "http://127.0.0.1:1/session"})
	_, err := c.Connect(context.Background(), "")
	require.Error(t, err)
}

func TestConnect_SendsBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewConnector(Config{SessionURL: srv.URL, Timeout: 5 * time.Second})
	_, err := c.Connect(context.Background(), "fm-token")
	require.Error(t, err)
	assert.Equal(t, "Bearer fm-token", gotAuth.Load())
}

func TestContextTransport_CallCancellationAbortsRequest(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tr := &contextTransport{base: http.DefaultTransport}
	tr.bind(ctx)
	client := &http.Client{Transport: tr}

	errc := make(chan error, 1)
	go func() {
		resp, err := client.Get(srv.URL)
		if err == nil {
			_ = resp.Body.Close()
		}
		errc <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("request was not aborted")
	}
}

func TestContextTransport_CancelledBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &contextTransport{base: http.DefaultTransport}
	tr.bind(ctx)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = tr.RoundTrip(req)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), hits.Load())
}

func TestContextTransport_ReleasesOnBodyClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	tr := &contextTransport{base: http.DefaultTransport}
	tr.bind(context.Background())

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	require.NoError(t, resp.Body.Close())
	require.NoError(t, resp.Body.Close())
}
