package chathub

import "chatterbox/backend/internal/models"

// Client is one live delivery channel belonging to an actor. An actor
// may own several concurrent clients (multiple sessions). It abstracts
// the underlying connection so the hub can manage transports uniformly.
type Client interface {
	// GetUserID returns the actor this channel belongs to.
	GetUserID() string

	// GetSendChannel returns the channel the hub queues outbound
	// events onto. Events queued here reach the wire in FIFO order.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()

	// Close shuts down the outbound side. Safe to call more than once.
	Close()
}
