// Package oracle fetches signed price attestations from Hermes-style price
// services and streams live price updates between relay cycles.
package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// PriceClient is the REST client for one price service endpoint. It fetches
// the latest signed VAA payloads for a set of feed ids.
type PriceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPriceClient creates a client for the given endpoint root, e.g.
// "https://hermes.pyth.network".
func NewPriceClient(baseURL string) *PriceClient {
	return &PriceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the endpoint root this client talks to.
func (p *PriceClient) BaseURL() string {
	return p.baseURL
}

// LatestUpdateData returns the latest signed attestation bytes for the feed
// ids, one payload per feed. A response that does not cover every requested
// feed is an error wrapping domain.ErrNoUpdateData.
func (p *PriceClient) LatestUpdateData(ctx context.Context, feedIDs []common.Hash) (domain.UpdatePayload, error) {
	params := url.Values{}
	for _, id := range feedIDs {
		params.Add("ids[]", id.Hex())
	}
	endpoint := p.baseURL + "/api/latest_vaas?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: %s returned status %d: %s", p.baseURL, resp.StatusCode, truncate(body, 200))
	}

	var vaas []string
	if err := json.Unmarshal(body, &vaas); err != nil {
		return nil, fmt.Errorf("oracle: decode response: %w", err)
	}
	if len(vaas) != len(feedIDs) {
		return nil, fmt.Errorf("oracle: got %d payloads for %d feeds: %w", len(vaas), len(feedIDs), domain.ErrNoUpdateData)
	}

	update := make(domain.UpdatePayload, 0, len(vaas))
	for i, v := range vaas {
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("oracle: decode payload %d: %w", i, err)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("oracle: empty payload %d: %w", i, domain.ErrNoUpdateData)
		}
		update = append(update, raw)
	}
	return update, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
