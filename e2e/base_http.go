package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseHTTPSuite carries the shared plumbing for scenario suites running
// against a live server: REST helpers, authentication, and WebSocket dialing.
type BaseHTTPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests.
// Suites skip entirely when no server address is configured.
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping live scenario")
	}
}

func (s *BaseHTTPSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// PostJSON runs a POST against the server and decodes the JSON response.
func (s *BaseHTTPSuite) PostJSON(path, token string, body, out any) int {
	data, err := json.Marshal(body)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost,
		"http://"+s.Config.ServerAddr+path, bytes.NewReader(data))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// GetJSON runs an authenticated GET and decodes the JSON response.
func (s *BaseHTTPSuite) GetJSON(path, token string, out any) int {
	req, err := http.NewRequest(http.MethodGet,
		"http://"+s.Config.ServerAddr+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// Register creates a fresh account and returns its token.
func (s *BaseHTTPSuite) Register(email, password string) string {
	var out struct {
		Token string `json:"token"`
	}
	code := s.PostJSON("/api/auth/register", "", map[string]string{
		"email": email, "password": password,
	}, &out)
	s.Require().Equal(http.StatusCreated, code)
	s.Require().NotEmpty(out.Token)
	return out.Token
}

// DialWS opens an authenticated WebSocket session.
func (s *BaseHTTPSuite) DialWS(token string) *websocket.Conn {
	wsURL := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/api/ws",
		RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	s.Require().NoError(err)
	return conn
}

// SendFrame writes one event envelope on the session.
func (s *BaseHTTPSuite) SendFrame(conn *websocket.Conn, event string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	frame, err := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(data)})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, frame))
}

// ReadFrame reads the next envelope, failing the suite on timeout.
func (s *BaseHTTPSuite) ReadFrame(conn *websocket.Conn, timeout time.Duration) (string, json.RawMessage) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)

	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(raw, &frame))
	return frame.Event, frame.Data
}
