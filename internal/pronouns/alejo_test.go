package pronouns

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlejoServer(t *testing.T, h http.HandlerFunc) *AlejoClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAlejoClient(srv.URL+"/api/users", 500*time.Millisecond, 0, nil)
}

func TestAlejoLookup_ArrayPayload(t *testing.T) {
	var gotPath string
	c := newAlejoServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[{"id":"1","login":"some user","pronoun_id":"sheher"}]`))
	})
	p, ok := c.Lookup(context.Background(), "some user")
	require.True(t, ok)
	assert.Equal(t, SheHer, p)
	assert.Equal(t, "/api/users/some%20user", gotPath)
}

func TestAlejoLookup_ObjectPayloadWithName(t *testing.T) {
	c := newAlejoServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"xexem"}`))
	})
	p, ok := c.Lookup(context.Background(), "bob")
	require.True(t, ok)
	assert.Equal(t, XeXem, p)
}

func TestAlejoLookup_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
		"server":    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"malformed": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{not json`)) },
		"empty arr": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[]`)) },
		"no id":     func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"login":"x"}`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newAlejoServer(t, h)
			_, ok := c.Lookup(context.Background(), "bob")
			assert.False(t, ok)
		})
	}
}

func TestAlejoLookup_Timeout(t *testing.T) {
	c := newAlejoServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	start := time.Now()
	_, ok := c.Lookup(context.Background(), "slow")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestAlejoLookup_EmptyLogin(t *testing.T) {
	c := NewAlejoClient("http://127.0.0.1:1/", time.Second, 0, nil)
	_, ok := c.Lookup(context.Background(), "  ")
	assert.False(t, ok)
}
