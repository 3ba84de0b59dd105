package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilecheck/internal/mockapi"
)

func TestDiscover_Text(t *testing.T) {
	url := startMock(t, mockapi.DefaultBehavior())

	out, err := execute(NewDiscoverCommand(&RootOptions{Format: "text"}), "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Provenance: discovered")
	assert.Contains(t, out, "1, 2, 5, 8")
	assert.NotContains(t, out, "Degraded")
}

func TestDiscover_FallbackJSON(t *testing.T) {
	b := mockapi.DefaultBehavior()
	b.ListZeroID = true
	b.ListField = "items"
	url := startMock(t, b)

	out, err := execute(NewDiscoverCommand(&RootOptions{Format: "json"}), "--base-url", url)
	require.NoError(t, err, "discovery never fails")

	var resp struct {
		Data FixtureReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "fallback", resp.Data.Provenance)
	assert.Equal(t, "ids_not_present", resp.Data.Degraded)
	assert.Equal(t, []int64{1, 2, 3}, resp.Data.IDs)
}

func TestDiscover_SendsConfiguredUserAgent(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
	)
	api := mockapi.New(mockapi.DefaultBehavior(), nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("PROFILECHECK_USER_AGENT", "qa-bot/2")

	_, err := execute(NewDiscoverCommand(&RootOptions{Format: "text"}), "--base-url", srv.URL)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, agents)
	for _, ua := range agents {
		assert.Equal(t, "qa-bot/2", ua)
	}
}
