package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"market-client/internal/domain"
)

// Conn wraps a gorilla websocket connection as a domain.Transport carrying
// one text frame per message.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (c *Conn) ReadFrame() (string, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Conn) WriteFrame(frame string) error {
	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (c *Conn) Close() error {
	// Best effort close handshake; the server may already be gone.
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// Dialer opens gorilla websocket transports.
type Dialer struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewDialer(dialTimeout, writeTimeout time.Duration) *Dialer {
	return &Dialer{DialTimeout: dialTimeout, WriteTimeout: writeTimeout}
}

func (d *Dialer) Dial(ctx context.Context, url string) (domain.Transport, error) {
	if d.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.DialTimeout)
		defer cancel()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws, writeTimeout: d.WriteTimeout}, nil
}
