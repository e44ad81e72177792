package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/log"
)

type fakeServer struct {
	mu     sync.Mutex
	routes map[string]string
	token  string
	last   *http.Request
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.last = r.Clone(context.Background())
	s.mu.Unlock()

	if r.Header.Get("X-Plex-Token") != s.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, ok := s.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func (s *fakeServer) lastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func newTestClient(t *testing.T, routes map[string]string) (*Client, *fakeServer) {
	t.Helper()
	fs := &fakeServer{routes: routes, token: "tok"}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "tok", log.NullLogger()), fs
}

func TestClient_Ping(t *testing.T) {
	c, fs := newTestClient(t, map[string]string{
		"/identity": `{"MediaContainer":{"size":0,"machineIdentifier":"abc","version":"1.40.0"}}`,
	})
	require.NoError(t, c.Ping(context.Background()))

	req := fs.lastRequest()
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, clientID, req.Header.Get("X-Plex-Client-Identifier"))
}

func TestClient_StatusMapping(t *testing.T) {
	c, _ := newTestClient(t, nil)
	c.token = "bad"
	assert.ErrorIs(t, c.Ping(context.Background()), domain.ErrAuthFailed)

	c.token = "tok"
	_, err := c.FetchItemDetail(context.Background(), "404")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestClient_ListCollections(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/library/sections": `{"MediaContainer":{"size":2,"Directory":[
			{"key":"1","type":"movie","title":"Movies"},
			{"key":"2","type":"show","title":"TV Shows"}
		]}}`,
	})
	got, err := c.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Collection{
		{ID: "1", Name: "Movies", Kind: domain.KindMovie},
		{ID: "2", Name: "TV Shows", Kind: domain.KindShow},
	}, got)
}

func TestClient_ListItemsInCollection(t *testing.T) {
	c, fs := newTestClient(t, map[string]string{
		"/library/sections/1/all": `{"MediaContainer":{"size":2,"totalSize":5,"Metadata":[
			{"ratingKey":"10","type":"movie","title":"Alien"},
			{"ratingKey":"11","type":"movie","title":"Aliens"}
		]}}`,
	})
	got, err := c.ListItemsInCollection(context.Background(), "1", 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemRef{{ID: "10"}, {ID: "11"}}, got)

	q := fs.lastRequest().URL.Query()
	assert.Equal(t, "0", q.Get("X-Plex-Container-Start"))
	assert.Equal(t, "2", q.Get("X-Plex-Container-Size"))
}

func TestClient_FetchItemDetail(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/library/metadata/42": `{"MediaContainer":{"size":1,"Metadata":[{
			"ratingKey":"42","parentRatingKey":"41","grandparentRatingKey":"40",
			"type":"episode","title":"Pilot","summary":"It begins.",
			"audienceRating":7.5,"year":2009,"grandparentThumb":"/library/metadata/40/thumb/1",
			"viewCount":2,"lastViewedAt":1700000000,
			"Genre":[{"tag":"Comedy"}]
		}]}}`,
	})
	d, err := c.FetchItemDetail(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "Pilot", d.Title)
	assert.Equal(t, "episode", d.MediaType)
	assert.Equal(t, "/library/metadata/40/thumb/1", d.Thumb)
	assert.Equal(t, []string{"Comedy"}, d.Genres)
	assert.Equal(t, "7.5", d.Rating)
	assert.Equal(t, 2, d.PlayCount)
	require.NotNil(t, d.Year)
	assert.Equal(t, 2009, *d.Year)
	require.NotNil(t, d.LastPlayed)
	assert.Equal(t, int64(1700000000), *d.LastPlayed)
	assert.Equal(t, "41", d.ParentRatingKey)
	assert.Equal(t, "40", d.GrandparentRatingKey)
}

func TestClient_FetchItemDetailEmptyContainer(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/library/metadata/7": `{"MediaContainer":{"size":0}}`,
	})
	_, err := c.FetchItemDetail(context.Background(), "7")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestMapDetail_RatingPreference(t *testing.T) {
	assert.Equal(t, "8.1", MapDetail(Metadata{Rating: 8.1, AudienceRating: 6}).Rating)
	assert.Equal(t, "6", MapDetail(Metadata{AudienceRating: 6}).Rating)
	assert.Empty(t, MapDetail(Metadata{}).Rating)
	assert.Nil(t, MapDetail(Metadata{}).Year)
}
