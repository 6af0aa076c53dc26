package oracle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// Relay fetches update data with strict in-order endpoint failover: each
// configured endpoint is tried once, in order, and the first full payload
// wins. Clients are cached per endpoint.
type Relay struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[string]*PriceClient
}

// NewRelay creates a relay with an empty client cache.
func NewRelay(logger *slog.Logger) *Relay {
	return &Relay{
		log:     logger.With("component", "oracle"),
		clients: make(map[string]*PriceClient),
	}
}

// Fetch returns update data covering every feed id, trying endpoints in
// order. When all endpoints fail it returns an AllEndpointsUnavailableError
// wrapping the last failure.
func (r *Relay) Fetch(ctx context.Context, feedIDs []common.Hash, endpoints []string) (domain.UpdatePayload, error) {
	var lastErr error
	for _, endpoint := range endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		update, err := r.client(endpoint).LatestUpdateData(ctx, feedIDs)
		if err != nil {
			r.log.Warn("price service endpoint failed",
				"endpoint", endpoint,
				"error", err)
			lastErr = err
			continue
		}
		return update, nil
	}
	return nil, &domain.AllEndpointsUnavailableError{Tried: len(endpoints), Last: lastErr}
}

func (r *Relay) client(endpoint string) *PriceClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[endpoint]; ok {
		return c
	}
	c := NewPriceClient(endpoint)
	r.clients[endpoint] = c
	return c
}
