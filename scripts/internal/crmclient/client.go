// Package crmclient is a minimal client for the CRM login endpoint and chat socket.
package crmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/dsolution-crm/internal/proto"
)

// Login exchanges credentials for a token and returns it with the account id.
func Login(ctx context.Context, baseURL, email, password string) (token, userID string, err error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode login response: %w", err)
	}
	return out.Token, out.User.ID, nil
}

// Frame is an outbound server frame with its payload kept raw.
type Frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// Conn is a chat socket.
type Conn struct {
	*websocket.Conn
}

// Dial opens the chat socket.
func Dial(ctx context.Context, wsURL string) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Conn{Conn: conn}, nil
}

// Send writes an inbound frame.
func (c *Conn) Send(ctx context.Context, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, c.Conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// Read blocks for the next server frame.
func (c *Conn) Read(ctx context.Context) (Frame, error) {
	var f Frame
	err := wsjson.Read(ctx, c.Conn, &f)
	return f, err
}

// Join binds the socket to a conversation and waits for the acknowledgement.
func (c *Conn) Join(ctx context.Context, userID, token string) (string, error) {
	if err := c.Send(ctx, proto.InboundTypeJoin, proto.JoinData{UserID: userID, Token: token, Protocol: proto.ProtocolVersion}); err != nil {
		return "", err
	}
	f, err := c.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("read join reply: %w", err)
	}
	if f.Error != nil {
		return "", fmt.Errorf("join rejected: %s: %s", f.Error.Code, f.Error.Msg)
	}
	var joined proto.EventJoined
	if err := json.Unmarshal(f.Data, &joined); err != nil {
		return "", fmt.Errorf("decode join reply: %w", err)
	}
	return joined.UserID, nil
}

// Describe renders a frame for terminal output.
func Describe(f Frame) string {
	if f.Error != nil {
		return fmt.Sprintf("error %s: %s", f.Error.Code, f.Error.Msg)
	}
	switch f.Event {
	case proto.EventNameMessage:
		var m proto.EventMessage
		if err := json.Unmarshal(f.Data, &m); err == nil {
			return fmt.Sprintf("[%s] %s: %s", m.CreatedAt, m.OwnerID, m.Body)
		}
	case proto.EventNameHistory:
		var h proto.EventHistory
		if err := json.Unmarshal(f.Data, &h); err == nil {
			lines := make([]string, 0, len(h.Messages)+1)
			lines = append(lines, fmt.Sprintf("history of %s (%d messages)", h.OwnerID, len(h.Messages)))
			for _, m := range h.Messages {
				lines = append(lines, fmt.Sprintf("  [%s] %s", m.CreatedAt, m.Body))
			}
			return strings.Join(lines, "\n")
		}
	case proto.EventNameJoined:
		var j proto.EventJoined
		if err := json.Unmarshal(f.Data, &j); err == nil {
			return "joined " + j.UserID
		}
	}
	return fmt.Sprintf("type=%s event=%s data=%s", f.Type, f.Event, string(f.Data))
}
