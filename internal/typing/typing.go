// Package typing tracks ephemeral per-chat typing sessions. A session
// is opened on the first keystroke and closed by a debounce timer;
// further keystrokes refresh the timer without re-announcing. Each
// tracker is owned by one connection, so a second open chat can never
// clobber another chat's timer.
package typing

import (
	"sync"
	"time"

	"chatterbox/backend/internal/models"
)

// DefaultDebounce is how long after the last keystroke a session
// expires.
const DefaultDebounce = 3500 * time.Millisecond

// Tracker manages the local actor's outbound typing sessions, one per
// chat. onTyping fires when a session opens, onStop when it expires.
type Tracker struct {
	mu       sync.Mutex
	debounce time.Duration
	sessions map[string]*time.Timer
	onTyping func(chatID string)
	onStop   func(chatID string)
}

func NewTracker(debounce time.Duration, onTyping, onStop func(chatID string)) *Tracker {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Tracker{
		debounce: debounce,
		sessions: make(map[string]*time.Timer),
		onTyping: onTyping,
		onStop:   onStop,
	}
}

// Touch records a keystroke in a chat. The first touch opens the
// session and announces it; subsequent touches only push the expiry
// out.
func (t *Tracker) Touch(chatID string) {
	t.mu.Lock()
	if timer, ok := t.sessions[chatID]; ok {
		timer.Reset(t.debounce)
		t.mu.Unlock()
		return
	}

	t.sessions[chatID] = time.AfterFunc(t.debounce, func() { t.expire(chatID) })
	t.mu.Unlock()

	t.onTyping(chatID)
}

// Cancel ends a session without announcing, used when the chat is
// closed.
func (t *Tracker) Cancel(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.sessions[chatID]; ok {
		timer.Stop()
		delete(t.sessions, chatID)
	}
}

// CancelAll ends every session without announcing, used on disconnect.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for chatID, timer := range t.sessions {
		timer.Stop()
		delete(t.sessions, chatID)
	}
}

// Finish ends a session and announces the stop immediately, used when
// a message is sent.
func (t *Tracker) Finish(chatID string) {
	t.mu.Lock()
	timer, ok := t.sessions[chatID]
	if ok {
		timer.Stop()
		delete(t.sessions, chatID)
	}
	t.mu.Unlock()

	if ok {
		t.onStop(chatID)
	}
}

func (t *Tracker) expire(chatID string) {
	t.mu.Lock()
	_, ok := t.sessions[chatID]
	if ok {
		delete(t.sessions, chatID)
	}
	t.mu.Unlock()

	if ok {
		t.onStop(chatID)
	}
}

// Indicator is the receiving side: it shows who is typing in the
// currently open chat and ignores events for any other chat.
type Indicator struct {
	mu         sync.Mutex
	openChatID string
	typists    map[string]models.User
}

func NewIndicator() *Indicator {
	return &Indicator{typists: make(map[string]models.User)}
}

// Open switches the indicator to a chat, clearing previous state.
func (i *Indicator) Open(chatID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.openChatID = chatID
	i.typists = make(map[string]models.User)
}

// Close clears the indicator when no chat is open.
func (i *Indicator) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.openChatID = ""
	i.typists = make(map[string]models.User)
}

// HandleTyping records that user is typing in chatID. Events for a
// chat that is not open are dropped, not queued.
func (i *Indicator) HandleTyping(chatID string, user models.User) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if chatID != i.openChatID || i.openChatID == "" {
		return
	}
	i.typists[user.ID] = user
}

// HandleStopTyping clears the indicator for chatID when it is open.
func (i *Indicator) HandleStopTyping(chatID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if chatID != i.openChatID {
		return
	}
	i.typists = make(map[string]models.User)
}

// Typists returns who is currently typing in the open chat.
func (i *Indicator) Typists() []models.User {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]models.User, 0, len(i.typists))
	for _, u := range i.typists {
		out = append(out, u)
	}
	return out
}
