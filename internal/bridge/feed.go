// internal/bridge/feed.go
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/models"
)

const (
	feedSubprotocol = "party-feed"

	backoffBase = time.Second
	backoffCap  = 30 * time.Second
	maxAttempts = 10
)

// snapshotMessage is the wire frame the upstream feed sends per update.
type snapshotMessage struct {
	Type    string            `json:"type"`
	GameID  uuid.UUID         `json:"game_id"`
	Parties []models.PartyDTO `json:"parties"`
}

// FeedClient subscribes to an upstream websocket feed of party snapshots.
// Each subscription runs its own read loop with bounded exponential-backoff
// reconnects; transport errors go to OnError and never reach onUpdate.
type FeedClient struct {
	BaseURL string // e.g. ws://matchfeed:9000/feed
	Log     *logrus.Logger

	// OnError receives transport failures. Optional.
	OnError ErrorFunc
}

// NewFeedClient returns a FeedClient for the given feed base URL.
func NewFeedClient(baseURL string, log *logrus.Logger) *FeedClient {
	return &FeedClient{BaseURL: baseURL, Log: log}
}

// SubscribeGameParties dials the feed for gameID and delivers snapshots to
// onUpdate until Unsubscribe is called or the retry budget is exhausted.
func (fc *FeedClient) SubscribeGameParties(gameID uuid.UUID, onUpdate UpdateFunc) (Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &feedSubscription{cancel: cancel}
	sub.wg.Add(1)
	go fc.run(ctx, &sub.wg, gameID, onUpdate)
	return sub, nil
}

type feedSubscription struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Unsubscribe cancels the read loop and waits for it to exit, so no update
// callback can fire after it returns.
func (s *feedSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (fc *FeedClient) run(ctx context.Context, wg *sync.WaitGroup, gameID uuid.UUID, onUpdate UpdateFunc) {
	defer wg.Done()
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		err := fc.readOnce(ctx, gameID, onUpdate)
		if ctx.Err() != nil {
			return
		}
		attempt++
		fc.reportError(gameID, err)
		if attempt >= maxAttempts {
			fc.reportError(gameID, fmt.Errorf("giving up on feed for game %s after %d attempts: %w", gameID, attempt, err))
			return
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return
		}
	}
}

// readOnce dials the feed and pumps snapshots until the connection breaks.
// A successful message resets nothing here; reconnect accounting lives in run.
func (fc *FeedClient) readOnce(ctx context.Context, gameID uuid.UUID, onUpdate UpdateFunc) error {
	url := fmt.Sprintf("%s?game=%s", fc.BaseURL, gameID)
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{feedSubprotocol},
	})
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer c.Close(websocket.StatusInternalError, "feed client closing")

	fc.Log.WithFields(logrus.Fields{"game": gameID, "url": fc.BaseURL}).Info("feed connected")

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg snapshotMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			fc.Log.WithField("game", gameID).Warnf("feed sent invalid json: %v", err)
			continue
		}
		if msg.Type != "parties" || msg.GameID != gameID {
			continue
		}
		onUpdate(msg.Parties)
	}
}

func (fc *FeedClient) reportError(gameID uuid.UUID, err error) {
	if err == nil {
		return
	}
	if fc.OnError != nil {
		fc.OnError(gameID, err)
		return
	}
	fc.Log.WithField("game", gameID).Warnf("feed transport error: %v", err)
}

// backoff returns the delay before reconnect attempt n, exponential with a
// cap and up to 10% jitter.
func backoff(attempt int) time.Duration {
	d := backoffBase << uint(attempt-1)
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 10))
	return d + jitter
}
