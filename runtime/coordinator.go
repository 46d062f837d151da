// Package runtime dispatches inbound actor events to the presence, session,
// history, and moderation components and broadcasts the resulting deltas.
// It contains the orchestration, not the domain rules themselves.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"github.com/a7al3le-dotcom/chat7ob/auth"
	"github.com/a7al3le-dotcom/chat7ob/contract"
	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/domain/event"
	"github.com/a7al3le-dotcom/chat7ob/errors"
	"github.com/a7al3le-dotcom/chat7ob/history"
	"github.com/a7al3le-dotcom/chat7ob/moderation"
	"github.com/a7al3le-dotcom/chat7ob/presence"
	"github.com/a7al3le-dotcom/chat7ob/ratelimit"
	"github.com/a7al3le-dotcom/chat7ob/search"
	"github.com/a7al3le-dotcom/chat7ob/sessions"
)

// Coordinator owns all core chat state. Every inbound event runs its full
// read-modify-broadcast sequence under one mutex, which preserves the strict
// total ordering of mutations and broadcasts that clients observe. No
// handler blocks on another actor; the only scheduled suspension points are
// the grace timers, whose callbacks re-check state before acting.
type Coordinator struct {
	mu          sync.Mutex
	log         *slog.Logger
	sinks       contract.IRegistry
	tokens      auth.TokenCodec
	presence    *presence.Registry
	sessions    *sessions.Store
	history     *history.Log
	msgLimiter  *ratelimit.Limiter
	moderator   *moderation.Moderator
	index       *search.Index
	audit       contract.IAuditRepository
	gracePeriod time.Duration
	tailSize    int
	graceTimers map[string]*time.Timer // session token -> pending removal
	now         func() time.Time
}

type Options struct {
	MessageCap  int
	TailSize    int
	GracePeriod time.Duration
}

func NewCoordinator(
	log *slog.Logger,
	sinks contract.IRegistry,
	tokens auth.TokenCodec,
	msgLimiter *ratelimit.Limiter,
	moderator *moderation.Moderator,
	index *search.Index,
	audit contract.IAuditRepository,
	opts Options,
) *Coordinator {
	return &Coordinator{
		log:         log,
		sinks:       sinks,
		tokens:      tokens,
		presence:    presence.NewRegistry(),
		sessions:    sessions.NewStore(),
		history:     history.NewLog(opts.MessageCap),
		msgLimiter:  msgLimiter,
		moderator:   moderator,
		index:       index,
		audit:       audit,
		gracePeriod: opts.GracePeriod,
		tailSize:    opts.TailSize,
		graceTimers: make(map[string]*time.Timer),
		now:         time.Now,
	}
}

// Join validates the candidate username, assigns a role from the keyword
// lists, registers the participant, and issues its session token. The
// joiner receives the full roster and message tail; everyone else receives
// a roster delta and the system "joined" notice.
func (c *Coordinator) Join(ctx context.Context, cmd domain.JoinCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := auth.ValidateJoinRequest(auth.JoinRequest{Username: cmd.Username, AvatarColor: cmd.AvatarColor}); err != nil {
		return err
	}
	username := strings.TrimSpace(cmd.Username)
	if _, taken := c.presence.ByUsername(username); taken {
		return errors.ErrNameTaken
	}

	token, err := c.tokens.Issue(username)
	if err != nil {
		c.log.Error("Session token issuance failed", "username", username, "err", err)
		return errors.ErrInternal
	}

	joiner := &domain.Participant{
		ConnectionID: cmd.ConnectionID,
		Username:     username,
		Role:         domain.ResolveRole(username),
		AvatarColor:  avatarColorOrRandom(cmd.AvatarColor),
		JoinedAt:     c.now().UTC(),
		SessionToken: token,
	}
	if err := c.presence.Add(joiner); err != nil {
		return err
	}
	c.sessions.Put(token, joiner)

	notice := c.appendLocked(domain.NewSystemMessage(
		fmt.Sprintf("%s joined the chat", username), c.now().UTC()))

	c.send(ctx, cmd.ConnectionID, event.New(event.JoinedStateType, event.JoinedState{
		Self:         joiner.RosterEntry(),
		SessionToken: token,
		Roster:       c.presence.Roster(),
		Messages:     c.history.Tail(c.tailSize),
		MessageCount: c.history.Len(),
	}))
	c.broadcastExcept(ctx, cmd.ConnectionID, event.New(event.RosterDeltaType, event.RosterDelta{Roster: c.presence.Roster()}))
	c.broadcastExcept(ctx, cmd.ConnectionID, event.New(event.MessageAppendedType, event.MessageAppended{Message: notice}))
	c.broadcast(ctx, event.New(event.UserCountType, event.UserCount{Count: c.presence.Count()}))

	c.log.Info("Participant joined", "username", username, "role", joiner.Role)
	return nil
}

// SendMessage relays a user message to every connected actor, after the
// validation, rate limit, and moderation gates. All checks run strictly
// before any state write.
func (c *Coordinator) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender, ok := c.presence.ByConnection(cmd.ConnectionID)
	if !ok {
		return errors.ErrNotJoined
	}
	// Validation runs before the limiter: a rejected body must not
	// consume rate budget.
	if err := auth.ValidateMessageRequest(auth.MessageRequest{Body: cmd.Body}); err != nil {
		return err
	}
	if !c.msgLimiter.Allow(sender.SessionToken) {
		return errors.ErrRateLimited
	}

	body := cmd.Body
	if c.moderator != nil {
		censored, found := c.moderator.Censor(body)
		if len(found) > 0 {
			c.log.Info("Message censored", "author", sender.Username, "hits", len(found))
		}
		body = censored
	}
	info := whatlanggo.Detect(body)

	msg, _ := c.appendIndexedLocked(domain.Message{
		Author:       sender.Username,
		ConnectionID: sender.ConnectionID,
		Body:         body,
		AuthorRole:   sender.Role,
		Lang:         info.Lang.Iso6391(),
		SentAt:       c.now().UTC(),
		Kind:         domain.KindUser,
	})

	c.broadcast(ctx, event.New(event.MessageAppendedType, event.MessageAppended{Message: msg}))
	return nil
}

// RestoreSession rebinds a disconnected participant to a new connection.
// The lookup keys on the durable token, not the connection id, so a pending
// grace removal is superseded rather than raced. No leave/join notices are
// emitted for a restoration.
func (c *Coordinator) RestoreSession(ctx context.Context, cmd domain.RestoreSessionCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.tokens.Verify(cmd.Token); err != nil {
		return err
	}
	p, err := c.sessions.Lookup(cmd.Token)
	if err != nil {
		return err
	}

	if timer, ok := c.graceTimers[cmd.Token]; ok {
		timer.Stop()
		delete(c.graceTimers, cmd.Token)
	}
	c.presence.Rebind(p, cmd.ConnectionID)

	c.send(ctx, cmd.ConnectionID, event.New(event.RestoredStateType, event.RestoredState{
		Self:         p.RosterEntry(),
		Roster:       c.presence.Roster(),
		Messages:     c.history.Tail(c.tailSize),
		MessageCount: c.history.Len(),
	}))

	c.log.Info("Session restored", "username", p.Username)
	return nil
}

// Disconnect does not remove the participant immediately: a grace timer is
// started, and only its expiry removes the identity. A reconnection under
// the same token first makes the expiry a stale no-op.
func (c *Coordinator) Disconnect(connectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.presence.ByConnection(connectionID)
	if !ok {
		return
	}
	token := p.SessionToken
	if timer, ok := c.graceTimers[token]; ok {
		timer.Stop()
	}
	c.graceTimers[token] = time.AfterFunc(c.gracePeriod, func() {
		c.expireSession(token, connectionID)
	})
	c.log.Debug("Grace period started", "username", p.Username, "grace", c.gracePeriod)
}

// expireSession is the grace-timer callback. It re-checks current state
// under the lock before acting, and removal itself is idempotent, so a
// pathological double-fire cannot remove a restored participant.
func (c *Coordinator) expireSession(token, connectionID string) {
	ctx := context.Background()
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.graceTimers, token)

	p, err := c.sessions.Lookup(token)
	if err != nil {
		return // already removed
	}
	if p.ConnectionID != connectionID {
		return // reconnected first, the disconnect is stale
	}

	c.presence.Remove(p)
	c.sessions.Drop(token)
	c.msgLimiter.Forget(token)

	notice := c.appendLocked(domain.NewSystemMessage(
		fmt.Sprintf("%s left the chat", p.Username), c.now().UTC()))

	c.broadcast(ctx, event.New(event.MessageAppendedType, event.MessageAppended{Message: notice}))
	c.broadcast(ctx, event.New(event.RosterDeltaType, event.RosterDelta{Roster: c.presence.Roster()}))
	c.broadcast(ctx, event.New(event.UserCountType, event.UserCount{Count: c.presence.Count()}))

	c.log.Info("Participant left after grace expiry", "username", p.Username)
}

// Kick notifies the target, audits the action, and broadcasts the removal.
// The forced disconnect is the transport's job once the target has been
// handed its kicked notice.
func (c *Coordinator) Kick(ctx context.Context, cmd domain.KickCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	actor, ok := c.presence.ByConnection(cmd.ConnectionID)
	if !ok {
		return errors.ErrNotJoined
	}
	if !domain.Allowed(*actor, domain.ActionKickUser) {
		return errors.ErrPermissionDenied
	}

	target, ok := c.presence.ByUsername(cmd.TargetUsername)
	if !ok {
		c.log.Debug("Kick target not online", "target", cmd.TargetUsername)
		return nil
	}

	c.auditLocked(domain.ActionKickUser, actor.Username, target.Username, cmd.Reason)

	c.send(ctx, target.ConnectionID, event.New(event.KickedType, event.Kicked{Reason: cmd.Reason}))
	c.broadcast(ctx, event.New(event.UserKickedType, event.UserKicked{
		Username: target.Username,
		By:       actor.Username,
		Reason:   cmd.Reason,
	}))

	c.log.Info("Participant kicked", "target", target.Username, "by", actor.Username)
	return nil
}

// DeleteMessage removes at most one message; a miss is a silent no-op with
// no broadcast. Only the identifying key is broadcast, never the full log.
func (c *Coordinator) DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	actor, ok := c.presence.ByConnection(cmd.ConnectionID)
	if !ok {
		return errors.ErrNotJoined
	}
	if !domain.Allowed(*actor, domain.ActionDeleteMessage) {
		return errors.ErrPermissionDenied
	}

	if !c.history.DeleteByID(cmd.MessageID) {
		return nil
	}
	if c.index != nil {
		c.index.Remove(cmd.MessageID)
	}
	c.auditLocked(domain.ActionDeleteMessage, actor.Username, fmt.Sprintf("%d", cmd.MessageID), "")

	c.broadcast(ctx, event.New(event.MessageDeletedType, event.MessageDeleted{ID: cmd.MessageID}))
	return nil
}

// ClearChat empties the log entirely and broadcasts a clear notice.
func (c *Coordinator) ClearChat(ctx context.Context, cmd domain.ClearChatCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	actor, ok := c.presence.ByConnection(cmd.ConnectionID)
	if !ok {
		return errors.ErrNotJoined
	}
	if !domain.Allowed(*actor, domain.ActionClearChat) {
		return errors.ErrPermissionDenied
	}

	ids := c.history.Clear()
	if c.index != nil {
		c.index.Remove(ids...)
	}
	c.auditLocked(domain.ActionClearChat, actor.Username, "", "")

	c.broadcast(ctx, event.New(event.ChatClearedType, event.ChatCleared{By: actor.Username, At: c.now().UTC()}))
	return nil
}

// Search answers a moderator query from the live-window index. Results go
// to the requester only.
func (c *Coordinator) Search(ctx context.Context, cmd domain.SearchCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	actor, ok := c.presence.ByConnection(cmd.ConnectionID)
	if !ok {
		return errors.ErrNotJoined
	}
	if !domain.Allowed(*actor, domain.ActionSearch) {
		return errors.ErrPermissionDenied
	}
	if c.index == nil {
		c.log.Error("Search requested but no index is configured")
		return errors.ErrInternal
	}

	query := search.ParseQuery(cmd.RawQuery)
	hits, err := c.index.Search(ctx, query)
	if err != nil {
		c.log.Error("Search failed", "query", cmd.RawQuery, "err", err)
		return errors.ErrInternal
	}

	result := event.SearchResult{Query: query.RawInput}
	for _, h := range hits {
		result.Hits = append(result.Hits, event.SearchHit{ID: h.ID, Author: h.Author, Body: h.Body})
	}
	c.send(ctx, cmd.ConnectionID, event.New(event.SearchResultType, result))
	return nil
}

// Stats exposes coordinator gauges to the telemetry worker.
func (c *Coordinator) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"participants":   c.presence.Count(),
		"messages":       c.history.Len(),
		"pending_graces": len(c.graceTimers),
		"sessions":       c.sessions.Len(),
	}
}

// Stop cancels all pending grace timers. Participants are not removed:
// the process is going away with its whole roster anyway.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, timer := range c.graceTimers {
		timer.Stop()
		delete(c.graceTimers, token)
	}
}

// appendLocked appends a system message and keeps the search index away
// from it: only user messages are indexed. Caller holds the lock.
func (c *Coordinator) appendLocked(m domain.Message) domain.Message {
	stored, evicted := c.history.Append(m)
	if c.index != nil && len(evicted) > 0 {
		c.index.Remove(evicted...)
	}
	return stored
}

// appendIndexedLocked appends a user message and mirrors it into the
// search index, dropping evicted entries. Caller holds the lock.
func (c *Coordinator) appendIndexedLocked(m domain.Message) (domain.Message, []int64) {
	stored, evicted := c.history.Append(m)
	if c.index != nil {
		if err := c.index.Add(stored); err != nil {
			c.log.Warn("Failed to index message", "id", stored.ID, "err", err)
		}
		if len(evicted) > 0 {
			c.index.Remove(evicted...)
		}
	}
	return stored, evicted
}

func (c *Coordinator) auditLocked(action domain.Action, actor, target, reason string) {
	if c.audit == nil {
		return
	}
	entry := contract.AuditEntry{
		ID:     uuid.NewString(),
		Action: string(action),
		Actor:  actor,
		Target: target,
		Reason: reason,
		AtUnix: c.now().UTC().UnixNano(),
	}
	if err := c.audit.Store(entry); err != nil {
		c.log.Error("Failed to store audit entry", "action", action, "err", err)
	}
}

func (c *Coordinator) send(ctx context.Context, connectionID string, e event.Event) {
	sink, ok := c.sinks.Get(connectionID)
	if !ok {
		c.log.Debug("No sink for connection", "connection", connectionID)
		return
	}
	if err := sink.Consume(ctx, e); err != nil {
		c.log.Warn("Sink rejected event", "connection", connectionID, "type", e.Type, "err", err)
	}
}

func (c *Coordinator) broadcast(ctx context.Context, e event.Event) {
	for _, sink := range c.sinks.All() {
		if err := sink.Consume(ctx, e); err != nil {
			c.log.Warn("Sink rejected broadcast", "type", e.Type, "err", err)
		}
	}
}

func (c *Coordinator) broadcastExcept(ctx context.Context, exceptConnectionID string, e event.Event) {
	excluded, _ := c.sinks.Get(exceptConnectionID)
	for _, sink := range c.sinks.All() {
		if sink == excluded {
			continue
		}
		if err := sink.Consume(ctx, e); err != nil {
			c.log.Warn("Sink rejected broadcast", "type", e.Type, "err", err)
		}
	}
}

func avatarColorOrRandom(color string) string {
	if color != "" {
		return color
	}
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}
