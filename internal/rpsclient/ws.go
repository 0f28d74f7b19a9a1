package rpsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Frame is one server message.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the frame payload.
func (f Frame) Decode(v any) error { return json.Unmarshal(f.Data, v) }

// Conn is a participant's gateway connection.
type Conn struct {
	participant string
	conn        *websocket.Conn
}

// Dial connects to wsURL (e.g. ws://host:8080/ws) as participant and consumes
// the initial "connected" frame.
func Dial(ctx context.Context, wsURL, participant string) (*Conn, error) {
	u, err := url.Parse(strings.TrimSpace(wsURL))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("participant", participant)
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      http.Header{"X-Participant-Id": []string{participant}},
	})
	if err != nil {
		return nil, err
	}
	c := &Conn{participant: participant, conn: conn}
	if _, err := c.Await(ctx, "connected"); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return nil, err
	}
	return c, nil
}

func (c *Conn) Participant() string { return c.participant }

func (c *Conn) Send(ctx context.Context, typ string, data any) error {
	return wsjson.Write(ctx, c.conn, map[string]any{"type": typ, "data": data})
}

func (c *Conn) Next(ctx context.Context) (Frame, error) {
	var f Frame
	err := wsjson.Read(ctx, c.conn, &f)
	return f, err
}

// Await skips frames until one of the given types arrives. An "error" frame
// that was not asked for is returned as an error.
func (c *Conn) Await(ctx context.Context, types ...string) (Frame, error) {
	for {
		f, err := c.Next(ctx)
		if err != nil {
			return Frame{}, err
		}
		for _, t := range types {
			if f.Type == t {
				return f, nil
			}
		}
		if f.Type == "error" {
			return f, fmt.Errorf("%s: server error %s", c.participant, string(f.Data))
		}
	}
}

func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
