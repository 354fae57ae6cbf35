package ledger

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type changeEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
}

// Watch connects to the authority's websocket feed and re-fetches the user
// record every time the server announces a change, so a view in this
// process stays consistent with mutations made elsewhere. Blocks until ctx
// is cancelled or the connection drops.
func (c *Client) Watch(ctx context.Context, wsURL string) error {
	token, ok := c.store.Token()
	if !ok {
		return ErrNotAuthenticated
	}

	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("invalid websocket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect change feed: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop when the caller goes away.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var event changeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("change feed closed: %w", err)
		}

		if event.Type != "user_changed" {
			continue
		}
		if _, err := c.RefreshFromServer(ctx); err != nil {
			log.WithError(err).Warn("Failed to refresh after change notification")
		}
	}
}
