package bridge

import (
	"context"
	"net/url"

	"github.com/gorilla/websocket"
)

// Transport delivers raw update frames from the remote world server. Next
// blocks until a frame arrives, the transport closes, or ctx is done.
type Transport interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// websocketTransport reads JSON frames from a websocket connection.
type websocketTransport struct {
	conn *websocket.Conn
}

// DialWebsocket connects to a websocket update feed.
func DialWebsocket(serverURL string) (Transport, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &websocketTransport{conn: conn}, nil
}

func (t *websocketTransport) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Close unblocks the pending read when ctx is canceled by the owner.
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *websocketTransport) Close() error {
	return t.conn.Close()
}
