package models

import "encoding/json"

// Wire event names. Both directions share the same envelope; see the
// router for who may send what.
const (
	EventSetup            = "setup"
	EventJoinChat         = "join chat"
	EventSendMessage      = "send new message"
	EventMessageReceived  = "new message received"
	EventNewChat          = "new chat"
	EventPushGroupChanges = "push group changes"
	EventGroupChanges     = "new group chat changes"
	EventTyping           = "typing"
	EventStopTyping       = "stop typing"
)

// Event is the JSON envelope exchanged over a delivery channel.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event envelope.
func NewEvent(name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: raw}, nil
}

// JoinPayload carries the chat a channel wants topic membership in.
type JoinPayload struct {
	ChatID string `json:"chatId"`
}

// TypingPayload carries typing state for a chat. User is present on
// "typing" and omitted on "stop typing".
type TypingPayload struct {
	ChatID string `json:"chatId"`
	User   *User  `json:"user,omitempty"`
}
