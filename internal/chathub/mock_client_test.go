package chathub_test

import (
	"sync"
	"testing"
	"time"

	"chatterbox/backend/internal/models"
)

// fakeClient is an in-memory chathub.Client that records delivered
// events and whether Close was called.
type fakeClient struct {
	userID string
	send   chan models.Event

	once   sync.Once
	closed chan struct{}
}

func newFakeClient(userID string, buffer int) *fakeClient {
	return &fakeClient{
		userID: userID,
		send:   make(chan models.Event, buffer),
		closed: make(chan struct{}),
	}
}

func (c *fakeClient) GetUserID() string { return c.userID }

func (c *fakeClient) GetSendChannel() chan<- models.Event { return c.send }

func (c *fakeClient) Run() {}

func (c *fakeClient) Close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *fakeClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// recv waits for one delivered event.
func (c *fakeClient) recv(t *testing.T) models.Event {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s received no event", c.userID)
		return models.Event{}
	}
}

// expectNone asserts no event arrives within a short window.
func (c *fakeClient) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-c.send:
		t.Fatalf("client %s unexpectedly received %q", c.userID, ev.Name)
	case <-time.After(100 * time.Millisecond):
	}
}
