package e2e

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests.
// Without SERVER_ADDR there is nothing to talk to, so the suite skips.
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping e2e scenarios")
	}
}

// Dial opens a websocket session with logging and optional frame dumping.
func (s *BaseWsSuite) Dial(t *testing.T, name string) *wsSession {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	url := fmt.Sprintf("ws://%s/ws", s.Config.ServerAddr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to connect to websocket server at "+url)

	session := &wsSession{t: t, conn: conn, debug: s.Config.DebugJSON}
	t.Cleanup(session.Close)
	return session
}

type wsSession struct {
	t     *testing.T
	conn  *websocket.Conn
	debug bool
}

func (w *wsSession) Send(frame map[string]any) {
	data, err := json.Marshal(frame)
	if err != nil {
		w.t.Fatalf("marshal frame: %v", err)
	}
	if w.debug {
		w.t.Logf("SEND: %s", data)
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		w.t.Fatalf("write frame: %v", err)
	}
}

// Expect reads frames until one of the wanted type arrives, skipping any
// interleaved broadcasts, and returns its decoded payload.
func (w *wsSession) Expect(eventType string) map[string]any {
	deadline := time.Now().Add(frameTimeout)
	for {
		_ = w.conn.SetReadDeadline(deadline)
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.t.Fatalf("waiting for %q: %v", eventType, err)
		}
		if w.debug {
			w.t.Logf("RECV: %s", data)
		}

		var frame struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			w.t.Fatalf("decode frame: %v", err)
		}
		if frame.Type == eventType {
			return frame.Payload
		}
	}
}

func (w *wsSession) Close() {
	_ = w.conn.Close()
}
