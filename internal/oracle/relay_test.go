package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

var testFeeds = []common.Hash{
	common.HexToHash("0xaa"),
	common.HexToHash("0xbb"),
}

func vaaServer(t *testing.T, payloads [][]byte, hits *hitLog) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.record(r.Host)
		encoded := make([]string, 0, len(payloads))
		for _, p := range payloads {
			encoded = append(encoded, base64.StdEncoding.EncodeToString(p))
		}
		require.NoError(t, json.NewEncoder(w).Encode(encoded))
	}))
}

func failingServer(t *testing.T, hits *hitLog) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.record(r.Host)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
}

type hitLog struct {
	mu    sync.Mutex
	hosts []string
}

func (h *hitLog) record(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hosts = append(h.hosts, host)
}

func (h *hitLog) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.hosts...)
}

func TestLatestUpdateDataDecodesPayloads(t *testing.T) {
	hits := &hitLog{}
	srv := vaaServer(t, [][]byte{[]byte("update-a"), []byte("update-b")}, hits)
	defer srv.Close()

	client := NewPriceClient(srv.URL)
	update, err := client.LatestUpdateData(context.Background(), testFeeds)
	require.NoError(t, err)
	require.Len(t, update, 2)
	assert.Equal(t, []byte("update-a"), update[0])
	assert.Equal(t, []byte("update-b"), update[1])
}

func TestLatestUpdateDataIncompleteFeedSet(t *testing.T) {
	hits := &hitLog{}
	srv := vaaServer(t, [][]byte{[]byte("only-one")}, hits)
	defer srv.Close()

	client := NewPriceClient(srv.URL)
	_, err := client.LatestUpdateData(context.Background(), testFeeds)
	assert.ErrorIs(t, err, domain.ErrNoUpdateData)
}

func TestRelayFailsOverInOrder(t *testing.T) {
	hits := &hitLog{}
	bad := failingServer(t, hits)
	defer bad.Close()
	good := vaaServer(t, [][]byte{[]byte("a"), []byte("b")}, hits)
	defer good.Close()

	relay := NewRelay(slog.New(slog.DiscardHandler))
	update, err := relay.Fetch(context.Background(), testFeeds, []string{bad.URL, good.URL})
	require.NoError(t, err)
	require.Len(t, update, 2)

	hosts := hits.list()
	require.Len(t, hosts, 2, "exactly one attempt per endpoint")
	assert.NotEqual(t, hosts[0], hosts[1])
}

func TestRelayAllEndpointsUnavailable(t *testing.T) {
	hits := &hitLog{}
	bad1 := failingServer(t, hits)
	defer bad1.Close()
	bad2 := failingServer(t, hits)
	defer bad2.Close()

	relay := NewRelay(slog.New(slog.DiscardHandler))
	_, err := relay.Fetch(context.Background(), testFeeds, []string{bad1.URL, bad2.URL})
	require.Error(t, err)

	var allFailed *domain.AllEndpointsUnavailableError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, 2, allFailed.Tried)
	assert.Error(t, allFailed.Last)
	assert.Len(t, hits.list(), 2)
}

func TestRelayStopsAtFirstSuccess(t *testing.T) {
	hits := &hitLog{}
	good := vaaServer(t, [][]byte{[]byte("a"), []byte("b")}, hits)
	defer good.Close()
	spare := vaaServer(t, [][]byte{[]byte("a"), []byte("b")}, hits)
	defer spare.Close()

	relay := NewRelay(slog.New(slog.DiscardHandler))
	_, err := relay.Fetch(context.Background(), testFeeds, []string{good.URL, spare.URL})
	require.NoError(t, err)
	assert.Len(t, hits.list(), 1, "no requests after the first success")
}
