package chathub_test

import (
	"testing"
	"time"

	"chatterbox/backend/internal/chathub"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(store *storagetest.MockStorage) *chathub.Hub {
	h := chathub.NewHub(store, zap.NewNop())
	go h.Run()
	return h
}

func presenceAgnostic(store *storagetest.MockStorage) {
	store.On("MarkOnline", mock.Anything).Return(nil)
	store.On("MarkOffline", mock.Anything).Return(nil)
}

func mustEvent(t *testing.T, name string, payload any) models.Event {
	t.Helper()
	ev, err := models.NewEvent(name, payload)
	require.NoError(t, err)
	return ev
}

func TestHub_PresenceFollowsChannelCount(t *testing.T) {
	store := new(storagetest.MockStorage)
	store.On("MarkOnline", "user_A").Return(nil)
	store.On("MarkOffline", "user_A").Return(nil)
	h := startHub(store)

	first := newFakeClient("user_A", 8)
	second := newFakeClient("user_A", 8)

	h.Register(first)
	h.Register(second)
	time.Sleep(50 * time.Millisecond)
	store.AssertNumberOfCalls(t, "MarkOnline", 1)

	h.Unregister(first)
	time.Sleep(50 * time.Millisecond)
	store.AssertNotCalled(t, "MarkOffline", "user_A")
	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())

	h.Unregister(second)
	// Unregistering twice is harmless.
	h.Unregister(second)
	time.Sleep(50 * time.Millisecond)
	store.AssertNumberOfCalls(t, "MarkOffline", 1)
	assert.True(t, second.isClosed())
}

func TestHub_MessageFanoutSkipsSender(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	sender := newFakeClient("user_A", 8)
	peer := newFakeClient("user_B", 8)
	third := newFakeClient("user_C", 8)
	for _, c := range []*fakeClient{sender, peer, third} {
		h.Register(c)
	}
	time.Sleep(50 * time.Millisecond)

	msg := models.Message{
		ID:       1,
		ChatID:   "chat1",
		SenderID: "user_A",
		Content:  "hello",
		Chat:     &models.Chat{ID: "chat1", Members: []string{"user_A", "user_B", "user_C"}},
	}
	h.Submit(sender, mustEvent(t, models.EventSendMessage, msg))

	for _, c := range []*fakeClient{peer, third} {
		ev := c.recv(t)
		assert.Equal(t, models.EventMessageReceived, ev.Name)
	}
	sender.expectNone(t)
}

func TestHub_MessageFanoutReachesEveryChannelOfAnActor(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	sender := newFakeClient("user_A", 8)
	laptop := newFakeClient("user_B", 8)
	phone := newFakeClient("user_B", 8)
	for _, c := range []*fakeClient{sender, laptop, phone} {
		h.Register(c)
	}
	time.Sleep(50 * time.Millisecond)

	msg := models.Message{
		ChatID:   "chat1",
		SenderID: "user_A",
		Chat:     &models.Chat{ID: "chat1", Members: []string{"user_A", "user_B"}},
	}
	h.Submit(sender, mustEvent(t, models.EventSendMessage, msg))

	laptop.recv(t)
	phone.recv(t)
}

func TestHub_TypingStaysInsideTopic(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	origin := newFakeClient("user_A", 8)
	joined := newFakeClient("user_B", 8)
	outsider := newFakeClient("user_C", 8)
	for _, c := range []*fakeClient{origin, joined, outsider} {
		h.Register(c)
	}

	h.Submit(origin, mustEvent(t, models.EventJoinChat, models.JoinPayload{ChatID: "chat1"}))
	h.Submit(joined, mustEvent(t, models.EventJoinChat, models.JoinPayload{ChatID: "chat1"}))
	time.Sleep(50 * time.Millisecond)

	typing := mustEvent(t, models.EventTyping, models.TypingPayload{
		ChatID: "chat1",
		User:   &models.User{ID: "user_A", Name: "Alice"},
	})
	h.Submit(origin, typing)

	ev := joined.recv(t)
	assert.Equal(t, models.EventTyping, ev.Name)
	origin.expectNone(t)
	outsider.expectNone(t)
}

func TestHub_GroupChangesReEmittedUnderNewName(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	actor := newFakeClient("user_A", 8)
	member := newFakeClient("user_B", 8)
	h.Register(actor)
	h.Register(member)
	time.Sleep(50 * time.Millisecond)

	chat := models.Chat{ID: "chat1", IsGroup: true, Members: []string{"user_A", "user_B"}}
	h.Submit(actor, mustEvent(t, models.EventPushGroupChanges, chat))

	ev := member.recv(t)
	assert.Equal(t, models.EventGroupChanges, ev.Name)
	actor.expectNone(t)
}

func TestHub_NewChatFanout(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	actor := newFakeClient("user_A", 8)
	member := newFakeClient("user_B", 8)
	h.Register(actor)
	h.Register(member)
	time.Sleep(50 * time.Millisecond)

	// user_C has no live channel; delivery to it is a no-op.
	chat := models.Chat{ID: "chat1", Members: []string{"user_A", "user_B", "user_C"}}
	h.Submit(actor, mustEvent(t, models.EventNewChat, chat))

	ev := member.recv(t)
	assert.Equal(t, models.EventNewChat, ev.Name)
	actor.expectNone(t)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	sender := newFakeClient("user_A", 8)
	stuck := newFakeClient("user_B", 0) // zero buffer, never drained
	h.Register(sender)
	h.Register(stuck)
	time.Sleep(50 * time.Millisecond)

	msg := models.Message{
		ChatID:   "chat1",
		SenderID: "user_A",
		Chat:     &models.Chat{ID: "chat1", Members: []string{"user_A", "user_B"}},
	}
	h.Submit(sender, mustEvent(t, models.EventSendMessage, msg))
	time.Sleep(50 * time.Millisecond)

	assert.True(t, stuck.isClosed())
}

func TestHub_UnregisterLeavesTopics(t *testing.T) {
	store := new(storagetest.MockStorage)
	presenceAgnostic(store)
	h := startHub(store)

	leaver := newFakeClient("user_A", 8)
	stayer := newFakeClient("user_B", 8)
	h.Register(leaver)
	h.Register(stayer)
	h.Submit(leaver, mustEvent(t, models.EventJoinChat, models.JoinPayload{ChatID: "chat1"}))
	h.Submit(stayer, mustEvent(t, models.EventJoinChat, models.JoinPayload{ChatID: "chat1"}))
	time.Sleep(50 * time.Millisecond)

	h.Unregister(leaver)
	time.Sleep(50 * time.Millisecond)

	typing := mustEvent(t, models.EventTyping, models.TypingPayload{
		ChatID: "chat1",
		User:   &models.User{ID: "user_B"},
	})
	h.Submit(stayer, typing)

	leaver.expectNone(t)
}
