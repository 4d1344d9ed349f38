package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end-to-end scenarios")
	}
}

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Message struct {
	User        string `json:"user"`
	Msg         string `json:"msg"`
	OriginalMsg string `json:"originalMsg,omitempty"`
}

// Client is one live WebSocket session against the relay under test.
type Client struct {
	suite *BaseWsSuite
	name  string
	ws    *websocket.Conn
}

// Connect opens a session with a colorized header in logs.
func (s *BaseWsSuite) Connect(t *testing.T, name string) *Client {
	header := fmt.Sprintf("  ====== %s connects ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.Config.RelayAddr), nil)
	s.Require().NoError(err)
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "scenario done") })

	return &Client{suite: s, name: name, ws: ws}
}

func (c *Client) Send(eventName string, payload any) {
	data, err := json.Marshal(payload)
	c.suite.Require().NoError(err)
	f, err := json.Marshal(Frame{Event: eventName, Data: data})
	c.suite.Require().NoError(err)

	if c.suite.Config.DebugJSON {
		c.suite.T().Logf("%s >> %s", c.name, string(f))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.suite.Require().NoError(c.ws.Write(ctx, websocket.MessageText, f))
}

func (c *Client) Join(lang string) {
	c.Send("join", map[string]string{"name": c.name, "lang": lang})
}

// Close ends the session immediately, triggering the departure notice.
func (c *Client) Close() {
	_ = c.ws.Close(websocket.StatusNormalClosure, "leaving")
}

// Await reads frames until one with the wanted event name arrives.
func (c *Client) Await(eventName string) Frame {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := c.ws.Read(ctx)
		c.suite.Require().NoError(err, "%s timed out waiting for %q", c.name, eventName)

		if c.suite.Config.DebugJSON {
			c.suite.T().Logf("%s << %s", c.name, string(data))
		}

		var f Frame
		c.suite.Require().NoError(json.Unmarshal(data, &f))
		if f.Event == eventName {
			return f
		}
	}
}

// AwaitMessage reads "message" frames until one from the wanted author arrives.
func (c *Client) AwaitMessage(from string) Message {
	for {
		f := c.Await("message")
		var msg Message
		c.suite.Require().NoError(json.Unmarshal(f.Data, &msg))
		if msg.User == from {
			return msg
		}
	}
}
