package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunset/internal/normalize"
	"sunset/pkg/platform/sentinel"
)

const redhatBody = `{"data":[{"name":"Red Hat Enterprise Linux","versions":[
  {"name":"9","type":"Full Support","phases":[
    {"name":"General availability","date":"2022-05-17"},
    {"name":"Full support","date":"2027-05-31"},
    {"name":"Maintenance support","date":"2032-05-31"}
  ]},
  {"name":"8","type":"Maintenance Support","phases":[
    {"name":"General availability","date":"2019-05-07"},
    {"name":"Full support","date":"2024-05-31"},
    {"name":"Maintenance support","date":"2029-05-31"},
    {"name":"Extended life phase","date":"2032-05-31"}
  ]}
]}]}`

func newRedHatServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/products" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("name") == "mystery" {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		_, _ = w.Write([]byte(redhatBody))
	}))
}

func TestRedHatLookup(t *testing.T) {
	t.Run("maps phases to support and eol dates", func(t *testing.T) {
		server := newRedHatServer(t)
		defer server.Close()

		client := NewRedHat(server.URL, server.Client(), "")
		candidate, err := client.Lookup(context.Background(), normalize.Parse("Red Hat Enterprise Linux 8.6"))
		require.NoError(t, err)

		assert.Equal(t, "redhat", candidate.ResolverID)
		assert.Equal(t, "8", candidate.Cycle)
		require.NotNil(t, candidate.SupportDate)
		assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), *candidate.SupportDate)
		require.NotNil(t, candidate.EOLDate)
		// Extended life phase outranks maintenance support as the closing date.
		assert.Equal(t, time.Date(2032, 5, 31, 0, 0, 0, 0, time.UTC), *candidate.EOLDate)
	})

	t.Run("no version takes the newest version entry", func(t *testing.T) {
		server := newRedHatServer(t)
		defer server.Close()

		client := NewRedHat(server.URL, server.Client(), "")
		candidate, err := client.Lookup(context.Background(), normalize.Parse("Red Hat Enterprise Linux"))
		require.NoError(t, err)
		assert.Equal(t, "9", candidate.Cycle)
	})

	t.Run("empty product list is not found", func(t *testing.T) {
		server := newRedHatServer(t)
		defer server.Close()

		client := NewRedHat(server.URL, server.Client(), "")
		_, err := client.Lookup(context.Background(), normalize.Parse("mystery"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
