// Package chathub routes live events to exactly the affected
// connected actors. A single goroutine owns the delivery maps; every
// mutation and delivery goes through its command channels, which gives
// FIFO ordering per client channel.
package chathub

import (
	"encoding/json"

	"chatterbox/backend/internal/metrics"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage"

	"go.uber.org/zap"
)

// Inbound is an event received from a connected client, to be routed
// by the hub.
type Inbound struct {
	From  Client
	Event models.Event
}

type topicJoin struct {
	client  Client
	topicID string
}

type delivery struct {
	actorIDs []string
	event    models.Event
	exclude  string // actor to skip, "" for none
}

type topicDelivery struct {
	topicID string
	event   models.Event
	exclude Client // channel to skip, nil for none
}

// Hub is the fanout router. It maps each actor to its live channels
// and each topic (chat ID) to the channels joined to it.
type Hub struct {
	RegisterCh   chan Client
	UnregisterCh chan Client
	InboundCh    chan Inbound

	joinCh    chan topicJoin
	deliverCh chan delivery
	topicCh   chan topicDelivery

	// Owned by the Run goroutine; never touched elsewhere.
	clients     map[string]map[Client]struct{}
	topics      map[string]map[Client]struct{}
	memberships map[Client]map[string]struct{}

	store storage.Storage
	log   *zap.Logger
}

func NewHub(store storage.Storage, log *zap.Logger) *Hub {
	return &Hub{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		InboundCh:    make(chan Inbound, 64),
		joinCh:       make(chan topicJoin),
		deliverCh:    make(chan delivery, 64),
		topicCh:      make(chan topicDelivery, 64),
		clients:      make(map[string]map[Client]struct{}),
		topics:       make(map[string]map[Client]struct{}),
		memberships:  make(map[Client]map[string]struct{}),
		store:        store,
		log:          log,
	}
}

// Run is the hub's main dispatch loop. Start it once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.RegisterCh:
			h.register(c)
		case c := <-h.UnregisterCh:
			h.unregister(c)
		case j := <-h.joinCh:
			h.joinTopic(j.client, j.topicID)
		case in := <-h.InboundCh:
			h.route(in)
		case d := <-h.deliverCh:
			h.deliverToActors(d.actorIDs, d.event, d.exclude)
		case t := <-h.topicCh:
			h.deliverToTopic(t.topicID, t.event, t.exclude)
		}
	}
}

// Register attaches a client channel to its actor.
func (h *Hub) Register(c Client) { h.RegisterCh <- c }

// Unregister detaches a client channel and removes it from every
// topic. Safe to call for a client that was already removed.
func (h *Hub) Unregister(c Client) { h.UnregisterCh <- c }

// JoinTopic subscribes a channel to chat-scoped ephemeral events.
func (h *Hub) JoinTopic(c Client, topicID string) {
	h.joinCh <- topicJoin{client: c, topicID: topicID}
}

// Submit hands an inbound client event to the router.
func (h *Hub) Submit(from Client, ev models.Event) {
	h.InboundCh <- Inbound{From: from, Event: ev}
}

// DeliverToActors queues an event for every live channel of the given
// actors, skipping excludeActor's own channels.
func (h *Hub) DeliverToActors(actorIDs []string, ev models.Event, excludeActor string) {
	h.deliverCh <- delivery{actorIDs: actorIDs, event: ev, exclude: excludeActor}
}

// DeliverToTopic broadcasts an event to every channel joined to the
// topic, optionally skipping the originating channel.
func (h *Hub) DeliverToTopic(topicID string, ev models.Event, exclude Client) {
	h.topicCh <- topicDelivery{topicID: topicID, event: ev, exclude: exclude}
}

// --- run-loop internals ---

func (h *Hub) register(c Client) {
	uid := c.GetUserID()
	set, ok := h.clients[uid]
	if !ok {
		set = make(map[Client]struct{})
		h.clients[uid] = set
		if err := h.store.MarkOnline(uid); err != nil {
			h.log.Warn("failed to mark user online", zap.String("user_id", uid), zap.Error(err))
		}
	}
	set[c] = struct{}{}
	metrics.OnlineChannels.Inc()
	h.log.Debug("channel registered", zap.String("user_id", uid))
}

func (h *Hub) unregister(c Client) {
	uid := c.GetUserID()
	set, ok := h.clients[uid]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	metrics.OnlineChannels.Dec()

	if len(set) == 0 {
		delete(h.clients, uid)
		if err := h.store.MarkOffline(uid); err != nil {
			h.log.Warn("failed to mark user offline", zap.String("user_id", uid), zap.Error(err))
		}
	}

	for topicID := range h.memberships[c] {
		if subs := h.topics[topicID]; subs != nil {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, topicID)
			}
		}
	}
	delete(h.memberships, c)

	c.Close()
	h.log.Debug("channel unregistered", zap.String("user_id", uid))
}

func (h *Hub) joinTopic(c Client, topicID string) {
	subs, ok := h.topics[topicID]
	if !ok {
		subs = make(map[Client]struct{})
		h.topics[topicID] = subs
	}
	subs[c] = struct{}{}

	joined, ok := h.memberships[c]
	if !ok {
		joined = make(map[string]struct{})
		h.memberships[c] = joined
	}
	joined[topicID] = struct{}{}
}

// route dispatches one inbound event according to the wire protocol.
// Registration itself happens at upgrade time, so "setup" is an ack of
// an already-registered channel.
func (h *Hub) route(in Inbound) {
	switch in.Event.Name {
	case models.EventSetup:
		// Channel registration happened on upgrade.

	case models.EventJoinChat:
		var p models.JoinPayload
		if err := json.Unmarshal(in.Event.Payload, &p); err != nil || p.ChatID == "" {
			h.log.Warn("bad join payload", zap.Error(err))
			return
		}
		h.joinTopic(in.From, p.ChatID)

	case models.EventSendMessage:
		var msg models.Message
		if err := json.Unmarshal(in.Event.Payload, &msg); err != nil {
			h.log.Warn("bad message payload", zap.Error(err))
			return
		}
		if msg.Chat == nil || len(msg.Chat.Members) == 0 {
			h.log.Warn("message event without chat members")
			return
		}
		out := models.Event{Name: models.EventMessageReceived, Payload: in.Event.Payload}
		h.deliverToActors(msg.Chat.Members, out, msg.SenderID)

	case models.EventNewChat:
		var chat models.Chat
		if err := json.Unmarshal(in.Event.Payload, &chat); err != nil {
			h.log.Warn("bad chat payload", zap.Error(err))
			return
		}
		out := models.Event{Name: models.EventNewChat, Payload: in.Event.Payload}
		h.deliverToActors(chat.Members, out, in.From.GetUserID())

	case models.EventPushGroupChanges:
		var chat models.Chat
		if err := json.Unmarshal(in.Event.Payload, &chat); err != nil {
			h.log.Warn("bad chat payload", zap.Error(err))
			return
		}
		out := models.Event{Name: models.EventGroupChanges, Payload: in.Event.Payload}
		h.deliverToActors(chat.Members, out, in.From.GetUserID())

	case models.EventTyping, models.EventStopTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(in.Event.Payload, &p); err != nil || p.ChatID == "" {
			h.log.Warn("bad typing payload", zap.Error(err))
			return
		}
		h.deliverToTopic(p.ChatID, in.Event, in.From)

	default:
		h.log.Warn("unknown event", zap.String("event", in.Event.Name))
	}
}

func (h *Hub) deliverToActors(actorIDs []string, ev models.Event, excludeActor string) {
	for _, uid := range actorIDs {
		if uid == excludeActor {
			continue
		}
		for c := range h.clients[uid] {
			h.trySend(c, ev)
		}
	}
}

func (h *Hub) deliverToTopic(topicID string, ev models.Event, exclude Client) {
	for c := range h.topics[topicID] {
		if c == exclude {
			continue
		}
		h.trySend(c, ev)
	}
}

// trySend queues without blocking; a client that cannot keep up is
// dropped and unregistered rather than stalling the router.
func (h *Hub) trySend(c Client, ev models.Event) {
	select {
	case c.GetSendChannel() <- ev:
		metrics.EventsDelivered.Inc()
	default:
		metrics.EventsDropped.Inc()
		h.log.Warn("client channel full, dropping",
			zap.String("user_id", c.GetUserID()),
			zap.String("event", ev.Name))
		h.unregister(c)
	}
}
