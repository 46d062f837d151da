package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/a7al3le-dotcom/chat7ob/contract"
	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/domain/event"
	"github.com/a7al3le-dotcom/chat7ob/errors"
	"github.com/a7al3le-dotcom/chat7ob/ratelimit"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound frame types. Each frame is a JSON object carrying a type
// discriminator plus the fields of its command.
const (
	typeJoin          = "join"
	typeSendMessage   = "send-message"
	typeRestore       = "restore-session"
	typeKick          = "kick"
	typeDeleteMessage = "delete-message"
	typeClearChat     = "clear-chat"
	typeSearch        = "search-messages"
	typePing          = "ping"
)

type baseFrame struct {
	Type string `json:"type"`
}

type joinFrame struct {
	Username    string `json:"username"`
	AvatarColor string `json:"avatarColor"`
}

type sendMessageFrame struct {
	Body string `json:"body"`
}

type restoreFrame struct {
	Token string `json:"token"`
}

type kickFrame struct {
	TargetUsername string `json:"targetUsername"`
	Reason         string `json:"reason"`
}

type deleteMessageFrame struct {
	ID int64 `json:"id"`
}

type searchFrame struct {
	Query string `json:"query"`
}

// Handler upgrades HTTP requests to websocket connections and translates
// inbound frames into coordinator commands. Connection attempts are
// throttled per client IP before the upgrade happens.
type Handler struct {
	log         *slog.Logger
	coordinator contract.ICoordinator
	registry    contract.IRegistry
	connLimiter *ratelimit.Limiter
}

func NewHandler(log *slog.Logger, coordinator contract.ICoordinator, registry contract.IRegistry, connLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		log:         log,
		coordinator: coordinator,
		registry:    registry,
		connLimiter: connLimiter,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !h.connLimiter.Allow(ip) {
		h.log.Warn("Connection attempt throttled", "ip", ip)
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failed", "ip", ip, "err", err)
		return
	}

	client := NewClient(uuid.NewString(), h.log, conn)
	h.registry.Subscribe(client.ID(), client)
	h.log.Info("Connection opened", "connection_id", client.ID(), "ip", ip)

	go client.writePump()
	go func() {
		client.readPump(h.handleFrame)
		h.registry.Unsubscribe(client.ID())
		h.coordinator.Disconnect(client.ID())
		client.Shutdown()
		h.log.Info("Connection closed", "connection_id", client.ID())
	}()
}

func (h *Handler) handleFrame(c *Client, data []byte) {
	var base baseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		h.sendError(c, errors.ErrMessageInvalid)
		return
	}
	ctx := context.Background()

	switch base.Type {
	case typeJoin:
		var f joinFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.sendError(c, errors.ErrMessageInvalid)
			return
		}
		h.report(c, h.coordinator.Join(ctx, domain.JoinCommand{
			ConnectionID: c.ID(),
			Username:     f.Username,
			AvatarColor:  f.AvatarColor,
		}))

	case typeSendMessage:
		var f sendMessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.sendError(c, errors.ErrMessageInvalid)
			return
		}
		h.report(c, h.coordinator.SendMessage(ctx, domain.SendMessageCommand{
			ConnectionID: c.ID(),
			Body:         f.Body,
		}))

	case typeRestore:
		var f restoreFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.sendError(c, errors.ErrMessageInvalid)
			return
		}
		h.report(c, h.coordinator.RestoreSession(ctx, domain.RestoreSessionCommand{
			ConnectionID: c.ID(),
			Token:        f.Token,
		}))

	case typeKick:
		var f kickFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.sendError(c, errors.ErrMessageInvalid)
			return
		}
		h.report(c, h.coordinator.Kick(ctx, domain.KickCommand{
			ConnectionID:   c.ID(),
			TargetUsername: f.TargetUsername,
			Reason:         f.Reason,
		}))

	case typeDeleteMessage:
		var f deleteMessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.sendError(c, errors.ErrMessageInvalid)
			return
		}
		h.report(c, h.coordinator.DeleteMessage(ctx, domain.DeleteMessageCommand{
			ConnectionID: c.ID(),
			MessageID:    f.ID,
		}))

	case typeClearChat:
		h.report(c, h.coordinator.ClearChat(ctx, domain.ClearChatCommand{ConnectionID: c.ID()}))

	case typeSearch:
		var f searchFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.sendError(c, errors.ErrMessageInvalid)
			return
		}
		h.report(c, h.coordinator.Search(ctx, domain.SearchCommand{
			ConnectionID: c.ID(),
			RawQuery:     f.Query,
		}))

	case typePing:
		_ = c.Consume(ctx, event.New(event.PongType, event.Pong{ServerTime: time.Now().UTC()}))

	default:
		h.sendError(c, errors.ErrMessageInvalid)
	}
}

// report surfaces a command failure to the originating actor only.
func (h *Handler) report(c *Client, err error) {
	if err == nil {
		return
	}
	h.sendError(c, err)
}

func (h *Handler) sendError(c *Client, err error) {
	_ = c.Consume(context.Background(), event.New(event.ErrorType, event.Error{
		Kind:    errors.Kind(err),
		Message: errors.Message(err),
	}))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
