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

const microsoftLifecycleBody = `{"results":[
  {"product":"Windows Server","cycle":"2022","supportEndDate":"2026-10-13","eolDate":"2031-10-14","latestBuild":"10.0.20348","lts":true},
  {"product":"Windows Server","cycle":"2016","supportEndDate":"2022-01-11","eolDate":"2027-01-12","latestBuild":"10.0.14393","lts":true},
  {"product":"SQL Server","cycle":"2019","supportEndDate":"2025-02-28","eolDate":"2030-01-08","latestBuild":"15.0.4382","lts":null}
]}`

func newMicrosoftServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/lifecycle/search" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("name") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(microsoftLifecycleBody))
	}))
}

func TestMicrosoftLookup(t *testing.T) {
	t.Run("matches product and cycle", func(t *testing.T) {
		server := newMicrosoftServer(t)
		defer server.Close()

		client := NewMicrosoft(server.URL, server.Client(), "")
		q := normalize.Parse("Windows Server 2016 (Arc-enabled)")

		candidate, err := client.Lookup(context.Background(), q)
		require.NoError(t, err)

		assert.Equal(t, "microsoft", candidate.ResolverID)
		assert.Equal(t, "2016", candidate.Cycle)
		require.NotNil(t, candidate.EOLDate)
		assert.Equal(t, time.Date(2027, 1, 12, 0, 0, 0, 0, time.UTC), *candidate.EOLDate)
		require.NotNil(t, candidate.SupportDate)
		assert.Equal(t, "10.0.14393", candidate.LatestVersion)
	})

	t.Run("product name filter excludes other families", func(t *testing.T) {
		server := newMicrosoftServer(t)
		defer server.Close()

		client := NewMicrosoft(server.URL, server.Client(), "")
		candidate, err := client.Lookup(context.Background(), normalize.Parse("SQL Server 2019"))
		require.NoError(t, err)
		assert.Equal(t, "2019", candidate.Cycle)
		assert.Nil(t, candidate.LTS)
	})

	t.Run("no version takes the newest matching row", func(t *testing.T) {
		server := newMicrosoftServer(t)
		defer server.Close()

		client := NewMicrosoft(server.URL, server.Client(), "")
		candidate, err := client.Lookup(context.Background(), normalize.Parse("Windows Server"))
		require.NoError(t, err)
		assert.Equal(t, "2022", candidate.Cycle)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		server := newMicrosoftServer(t)
		defer server.Close()

		client := NewMicrosoft(server.URL, server.Client(), "")
		_, err := client.Lookup(context.Background(), normalize.Parse("Visual FoxPro 9"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
