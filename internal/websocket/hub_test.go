package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type HubSuite struct {
	suite.Suite
	hub *Hub
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.hub = NewHub(logger)
	s.hub.SetSessionValidator(func(sessionID string) error {
		if strings.HasPrefix(sessionID, "sess-") {
			return nil
		}
		return errors.New("unknown session")
	})
	go s.hub.Run()
}

func (s *HubSuite) TearDownTest() {
	s.hub.Stop()
}

// newClient registers a client without a network connection; tests
// drive it through handleMessage and read its send buffer directly
func (s *HubSuite) newClient() *Client {
	c := NewClient(s.hub, nil, s.hub.logger)
	s.hub.Register(c)
	s.Eventually(func() bool {
		return s.hub.GetTotalConnections() == 1
	}, time.Second, 5*time.Millisecond)
	return c
}

func (s *HubSuite) readMessage(c *Client) Message {
	select {
	case data := <-c.send:
		var msg Message
		s.Require().NoError(json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		s.FailNow("no message received")
	}
	return Message{}
}

func (s *HubSuite) TestSubscribeDeliversSessionEvents() {
	c := s.newClient()
	c.handleMessage(&ClientMessage{Type: MessageTypeSubscribe, SessionID: "sess-live"})

	ack := s.readMessage(c)
	s.Equal("subscribed", ack.Type)

	s.Eventually(func() bool {
		return s.hub.GetSubscriberCount("sess-live") == 1
	}, time.Second, 5*time.Millisecond)

	s.hub.ScoreChanged("sess-live", "player-1", 42)

	msg := s.readMessage(c)
	s.Equal(MessageTypeScoreUpdate, msg.Type)
	s.Equal("sess-live", msg.SessionID)

	payload, ok := msg.Data.(map[string]interface{})
	s.Require().True(ok)
	s.Equal("player-1", payload["player_id"])
	s.Equal(float64(42), payload["points"])
}

func (s *HubSuite) TestSubscribeUnknownSessionRejected() {
	c := s.newClient()
	c.handleMessage(&ClientMessage{Type: MessageTypeSubscribe, SessionID: "ghost"})

	msg := s.readMessage(c)
	s.Equal(MessageTypeError, msg.Type)
	s.Equal(0, s.hub.GetSubscriberCount("ghost"))
	s.Empty(c.sessions)
}

func (s *HubSuite) TestSubscriptionLimitEnforced() {
	c := s.newClient()
	for i := 0; i < maxSubscriptions; i++ {
		c.handleMessage(&ClientMessage{Type: MessageTypeSubscribe, SessionID: fmt.Sprintf("sess-%d", i)})
		s.Equal("subscribed", s.readMessage(c).Type)
	}

	c.handleMessage(&ClientMessage{Type: MessageTypeSubscribe, SessionID: "sess-overflow"})
	s.Equal(MessageTypeError, s.readMessage(c).Type)
}

func (s *HubSuite) TestUnsubscribeStopsDelivery() {
	c := s.newClient()
	c.handleMessage(&ClientMessage{Type: MessageTypeSubscribe, SessionID: "sess-live"})
	s.Equal("subscribed", s.readMessage(c).Type)
	s.Eventually(func() bool {
		return s.hub.GetSubscriberCount("sess-live") == 1
	}, time.Second, 5*time.Millisecond)

	c.handleMessage(&ClientMessage{Type: MessageTypeUnsubscribe, SessionID: "sess-live"})
	s.Equal("unsubscribed", s.readMessage(c).Type)
	s.Eventually(func() bool {
		return s.hub.GetSubscriberCount("sess-live") == 0
	}, time.Second, 5*time.Millisecond)
}
