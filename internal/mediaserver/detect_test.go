package mediaserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reelcache/internal/config"
	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/log"
	"github.com/mmcdole/reelcache/internal/mediaserver/plex"
	"github.com/mmcdole/reelcache/internal/mediaserver/tautulli"
)

func TestDetectSourceType(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    config.SourceType
		wantErr bool
	}{
		{
			name: "tautulli without key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/v2" {
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"response":{"result":"error","message":"Invalid apikey","data":{}}}`))
					return
				}
				http.NotFound(w, r)
			},
			want: config.SourceTypeTautulli,
		},
		{
			name: "plex xml identity",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/identity" {
					w.Write([]byte(`<?xml version="1.0"?><MediaContainer size="0" machineIdentifier="abc123" version="1.40.0"/>`))
					return
				}
				http.NotFound(w, r)
			},
			want: config.SourceTypePlex,
		},
		{
			name: "plex json identity",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/identity" {
					w.Write([]byte(`{"MediaContainer":{"size":0,"machineIdentifier":"abc123"}}`))
					return
				}
				http.NotFound(w, r)
			},
			want: config.SourceTypePlex,
		},
		{
			name: "neither",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>hello</html>`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got, err := DetectSourceType(context.Background(), srv.URL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSource(t *testing.T) {
	logger := log.NullLogger()

	src, err := NewSource(config.SourceConfig{Type: config.SourceTypeTautulli, URL: "localhost:8181", APIKey: "k"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &tautulli.Client{}, src)

	src, err = NewSource(config.SourceConfig{Type: config.SourceTypePlex, URL: "http://localhost:32400", Token: "t"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &plex.Client{}, src)

	_, err = NewSource(config.SourceConfig{Type: config.SourceTypeTautulli, URL: "localhost:8181"}, logger)
	assert.Error(t, err, "tautulli needs an api key")

	_, err = NewSource(config.SourceConfig{Type: config.SourceTypePlex, URL: "localhost:32400"}, logger)
	assert.Error(t, err, "plex needs a token")

	_, err = NewSource(config.SourceConfig{Type: "emby", URL: "localhost"}, logger)
	assert.Error(t, err)

	_, err = NewSource(config.SourceConfig{Type: config.SourceTypePlex, Token: "t"}, logger)
	assert.Error(t, err, "url is required")

	_, err = NewSource(config.SourceConfig{URL: "localhost"}, logger)
	assert.Error(t, err, "detection still needs a credential")
}

func TestNewSource_DetectsOnFirstUse(t *testing.T) {
	var hits atomic.Int32
	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Query().Get("cmd") {
		case "get_server_info":
			w.Write([]byte(`{"response":{"result":"success","message":null,"data":{"pms_name":"den"}}}`))
		default:
			w.Write([]byte(`{"response":{"result":"error","message":"Unknown command","data":{}}}`))
		}
	}))
	defer srv.Close()

	src, err := NewSource(config.SourceConfig{URL: srv.URL, APIKey: "k"}, log.NullLogger())
	require.NoError(t, err)
	assert.Zero(t, hits.Load(), "building the source does not contact the server")

	err = src.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerOffline)

	up.Store(true)
	require.NoError(t, src.Ping(context.Background()), "a failed detection is retried")
	assert.IsType(t, &tautulli.Client{}, src.(*detectingSource).src)
}
