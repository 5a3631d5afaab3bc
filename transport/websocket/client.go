package websocket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Subscription is a spectator connection to a remote hub
type Subscription struct {
	conn    *websocket.Conn
	matchID string
}

// Endpoint turns the base URL of a server (http, https, ws or wss) into the
// spectator URL of matchID
func Endpoint(serverURL, matchID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", serverURL)
	}
	u.Path += "/ws"
	q := u.Query()
	q.Set("match", matchID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe connects to the hub of serverURL and follows matchID
func Subscribe(ctx context.Context, serverURL, matchID string) (*Subscription, error) {
	endpoint, err := Endpoint(serverURL, matchID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %s: %w", endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}
	return &Subscription{conn: conn, matchID: matchID}, nil
}

// Next blocks until the next message arrives
func (s *Subscription) Next() (Message, error) {
	var msg Message
	if err := s.conn.ReadJSON(&msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Close ends the subscription
func (s *Subscription) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return s.conn.Close()
}
