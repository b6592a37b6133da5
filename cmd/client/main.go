// Terminal chat client. Exercises the chat-list reconciler and the
// typing tracker against a running server.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatterbox/backend/internal/chatlist"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/typing"

	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"http://localhost:8080"`
	Token     string `envconfig:"CHAT_TOKEN" required:"true"`
	UserID    string `envconfig:"CHAT_USER_ID" required:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client error: %v\n", err)
	}
	os.Exit(code)
}

type session struct {
	cfg    Config
	list   *chatlist.List
	typist *typing.Tracker
	ind    *typing.Indicator

	outbound chan models.Event
	openChat string
}

func run() (int, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		cfg:      cfg,
		list:     chatlist.New(),
		ind:      typing.NewIndicator(),
		outbound: make(chan models.Event, 64),
	}
	s.typist = typing.NewTracker(typing.DefaultDebounce,
		func(chatID string) { s.emitTyping(chatID) },
		func(chatID string) { s.emitStopTyping(chatID) },
	)
	defer s.typist.CancelAll()

	// Seed the reconciler from a server snapshot.
	chats, err := s.fetchChats(ctx)
	if err != nil {
		return exitRuntime, err
	}
	s.list.ApplySnapshot(chats)

	wsURL := strings.Replace(cfg.ServerURL, "http", "ws", 1) + "/ws?token=" + cfg.Token
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	s.send(models.Event{Name: models.EventSetup})

	go s.writeLoop(ctx, conn)
	go s.readLoop(conn)

	fmt.Printf(">>> connected to %s (%d chats). /chats /open <id> /notify, anything else sends\n",
		cfg.ServerURL, len(chats))

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("stopping client...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if err := s.handleLine(ctx, line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

func (s *session) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil

	case line == "/chats":
		for i, c := range s.list.Chats() {
			name := c.Name
			if !c.IsGroup {
				name = directChatName(c, s.cfg.UserID)
			}
			fmt.Printf("%2d. %s (%s)\n", i+1, name, c.ID)
		}
		return nil

	case line == "/notify":
		for _, n := range s.list.Notifications() {
			fmt.Printf("  [%s] %s\n", n.ChatID, n.Content)
		}
		return nil

	case strings.HasPrefix(line, "/open "):
		s.openChat = strings.TrimSpace(strings.TrimPrefix(line, "/open "))
		s.ind.Open(s.openChat)
		s.list.ClearNotifications(s.openChat)
		s.send(mustEvent(models.EventJoinChat, models.JoinPayload{ChatID: s.openChat}))
		fmt.Printf("opened chat %s\n", s.openChat)
		return nil

	default:
		if s.openChat == "" {
			return fmt.Errorf("no chat open, use /open <id>")
		}
		s.typist.Touch(s.openChat)
		msg, err := s.postMessage(ctx, s.openChat, line)
		if err != nil {
			return err
		}
		s.typist.Finish(s.openChat)
		if msg.Chat != nil {
			s.list.UpsertAndPromote(*msg.Chat)
		}
		s.send(mustEvent(models.EventSendMessage, msg))
		return nil
	}
}

func (s *session) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}

		switch ev.Name {
		case models.EventMessageReceived:
			var msg models.Message
			if err := json.Unmarshal(ev.Payload, &msg); err != nil {
				continue
			}
			if msg.Chat != nil {
				s.list.UpsertAndPromote(*msg.Chat)
			}
			if msg.ChatID == s.openChat {
				sender := msg.SenderID
				if msg.Sender != nil {
					sender = msg.Sender.Name
				}
				fmt.Printf("[%s] %s: %s\n", time.Now().Format(time.TimeOnly), sender, msg.Content)
			} else {
				s.list.AddNotification(msg)
				fmt.Printf("* new message in chat %s\n", msg.ChatID)
			}

		case models.EventNewChat, models.EventGroupChanges:
			var chat models.Chat
			if err := json.Unmarshal(ev.Payload, &chat); err != nil {
				continue
			}
			s.list.UpsertAndPromote(chat)

		case models.EventTyping:
			var p models.TypingPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil || p.User == nil {
				continue
			}
			s.ind.HandleTyping(p.ChatID, *p.User)
			if len(s.ind.Typists()) > 0 {
				fmt.Printf("... %s is typing\n", p.User.Name)
			}

		case models.EventStopTyping:
			var p models.TypingPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				continue
			}
			s.ind.HandleStopTyping(p.ChatID)
		}
	}
}

func (s *session) writeLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.outbound:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (s *session) send(ev models.Event) {
	select {
	case s.outbound <- ev:
	default:
	}
}

func (s *session) emitTyping(chatID string) {
	s.send(mustEvent(models.EventTyping, models.TypingPayload{
		ChatID: chatID,
		User:   &models.User{ID: s.cfg.UserID},
	}))
}

func (s *session) emitStopTyping(chatID string) {
	s.send(mustEvent(models.EventStopTyping, models.TypingPayload{ChatID: chatID}))
}

func (s *session) fetchChats(ctx context.Context) ([]models.Chat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ServerURL+"/api/chats", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Chats []models.Chat `json:"chats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Chats, nil
}

func (s *session) postMessage(ctx context.Context, chatID, content string) (*models.Message, error) {
	payload := map[string]any{
		"message": map[string]any{"messageContent": content},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.ServerURL+"/api/messages/create/"+chatID, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var body struct {
		CreatedMessage *models.Message `json:"createdMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.CreatedMessage, nil
}

func directChatName(c models.Chat, selfID string) string {
	for _, u := range c.Users {
		if u.ID != selfID {
			return u.Name
		}
	}
	return c.Name
}

func mustEvent(name string, payload any) models.Event {
	ev, err := models.NewEvent(name, payload)
	if err != nil {
		panic(err)
	}
	return ev
}
