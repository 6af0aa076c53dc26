package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

// PriceUpdateHandler is called for each streamed price update.
type PriceUpdateHandler func(ctx context.Context, update StreamPriceUpdate)

// StreamPriceUpdate is one price tick from the price service stream.
type StreamPriceUpdate struct {
	FeedID      common.Hash
	Price       string
	Confidence  string
	Exponent    int32
	PublishTime int64
}

// StreamWatcher subscribes to a Hermes-style websocket stream and invokes a
// handler for each price update. It is advisory: relay cycles never depend
// on it, and a dead stream only loses log visibility between cycles.
// Reconnects with a fixed backoff on disconnect.
type StreamWatcher struct {
	endpoint string
	feedIDs  []common.Hash
	onUpdate PriceUpdateHandler
	log      *slog.Logger
}

// NewStreamWatcher creates a watcher for the endpoint's /ws stream. endpoint
// is the HTTP root; the scheme is rewritten to ws/wss.
func NewStreamWatcher(endpoint string, feedIDs []common.Hash, onUpdate PriceUpdateHandler, logger *slog.Logger) *StreamWatcher {
	return &StreamWatcher{
		endpoint: endpoint,
		feedIDs:  feedIDs,
		onUpdate: onUpdate,
		log:      logger.With("component", "oracle_stream"),
	}
}

type streamSubscribe struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type streamMessage struct {
	Type      string           `json:"type"`
	PriceFeed *streamPriceFeed `json:"price_feed,omitempty"`
}

type streamPriceFeed struct {
	ID    string `json:"id"`
	Price struct {
		Price       string `json:"price"`
		Conf        string `json:"conf"`
		Expo        int32  `json:"expo"`
		PublishTime int64  `json:"publish_time"`
	} `json:"price"`
}

// Run streams until ctx is cancelled, reconnecting on disconnect.
func (s *StreamWatcher) Run(ctx context.Context) error {
	if len(s.feedIDs) == 0 {
		s.log.Info("no feeds to stream, exiting")
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("price stream disconnected, reconnecting", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (s *StreamWatcher) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.wsURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ids := make([]string, 0, len(s.feedIDs))
	for _, id := range s.feedIDs {
		ids = append(ids, id.Hex())
	}
	if err := conn.WriteJSON(streamSubscribe{Type: "subscribe", IDs: ids}); err != nil {
		return err
	}
	s.log.Info("price stream subscribed", "endpoint", s.endpoint, "feeds", len(ids))

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg streamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.Debug("skipping malformed stream message", "error", err)
			continue
		}
		if msg.Type != "price_update" || msg.PriceFeed == nil {
			continue
		}
		update := StreamPriceUpdate{
			FeedID:      common.HexToHash(msg.PriceFeed.ID),
			Price:       msg.PriceFeed.Price.Price,
			Confidence:  msg.PriceFeed.Price.Conf,
			Exponent:    msg.PriceFeed.Price.Expo,
			PublishTime: msg.PriceFeed.Price.PublishTime,
		}
		s.log.Debug("price update",
			"feed", update.FeedID.Hex(),
			"price", update.Price,
			"conf", update.Confidence,
			"publish_time", update.PublishTime)
		if s.onUpdate != nil {
			s.onUpdate(ctx, update)
		}
	}
}

func (s *StreamWatcher) wsURL() string {
	u := s.endpoint
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/") + "/ws"
}
