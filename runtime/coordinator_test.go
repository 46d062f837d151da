package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/a7al3le-dotcom/chat7ob/auth"
	"github.com/a7al3le-dotcom/chat7ob/contract"
	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/domain/event"
	"github.com/a7al3le-dotcom/chat7ob/errors"
	"github.com/a7al3le-dotcom/chat7ob/mocks"
	"github.com/a7al3le-dotcom/chat7ob/ratelimit"
)

const testGracePeriod = 60 * time.Millisecond

type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []event.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.events, func(e event.Event, _ int) event.Type { return e.Type })
}

func (s *recordingSink) countOf(t event.Type) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.CountBy(s.events, func(e event.Event) bool { return e.Type == t })
}

func (s *recordingSink) lastOf(t event.Type) (event.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == t {
			return s.events[i], true
		}
	}
	return event.Event{}, false
}

type fixture struct {
	coordinator *Coordinator
	registry    *Registry
}

func newFixture(t *testing.T, audit contract.IAuditRepository) fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	limiter := ratelimit.NewLimiter(log, time.Minute, 15)
	tokens := auth.NewTokenCodec("coordinator_test_secret", "chat7ob")
	coordinator := NewCoordinator(log, registry, tokens, limiter, nil, nil, audit, Options{
		MessageCap:  200,
		TailSize:    50,
		GracePeriod: testGracePeriod,
	})
	t.Cleanup(coordinator.Stop)
	return fixture{coordinator: coordinator, registry: registry}
}

func (f fixture) connect(connID string) *recordingSink {
	sink := &recordingSink{}
	f.registry.Subscribe(connID, sink)
	return sink
}

func (f fixture) join(t *testing.T, connID, username string) *recordingSink {
	t.Helper()
	sink := f.connect(connID)
	require.NoError(t, f.coordinator.Join(context.Background(), domain.JoinCommand{
		ConnectionID: connID,
		Username:     username,
	}))
	return sink
}

func (f fixture) token(t *testing.T, sink *recordingSink) string {
	t.Helper()
	joined, ok := sink.lastOf(event.JoinedStateType)
	require.True(t, ok)
	return joined.Payload.(event.JoinedState).SessionToken
}

func TestCoordinator_Join_Success(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	observer := f.join(t, "conn-observer", "observer")

	sink := f.connect("conn-1")

	// When a valid username joins
	req.NoError(f.coordinator.Join(ctx, domain.JoinCommand{ConnectionID: "conn-1", Username: "Sara"}))

	// Then the joiner receives its full state
	joined, ok := sink.lastOf(event.JoinedStateType)
	req.True(ok)
	state := joined.Payload.(event.JoinedState)
	req.Equal("Sara", state.Self.Username)
	req.Equal(domain.RoleUser, state.Self.Role)
	req.NotEmpty(state.SessionToken)
	req.NotEmpty(state.Self.AvatarColor)
	req.Len(state.Roster, 2)

	// And everyone else receives the delta, the system notice, and the count
	req.Equal(1, observer.countOf(event.RosterDeltaType))
	notice, ok := observer.lastOf(event.MessageAppendedType)
	req.True(ok)
	req.Equal(domain.KindSystem, notice.Payload.(event.MessageAppended).Message.Kind)
	count, ok := observer.lastOf(event.UserCountType)
	req.True(ok)
	req.Equal(2, count.Payload.(event.UserCount).Count)
}

func TestCoordinator_Join_NameTakenCaseInsensitive(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	f.join(t, "conn-1", "Sara")

	sink := f.connect("conn-2")
	err := f.coordinator.Join(ctx, domain.JoinCommand{ConnectionID: "conn-2", Username: "sARA"})

	req.ErrorIs(err, errors.ErrNameTaken)
	// No events reached the rejected joiner
	req.Empty(sink.types())
}

func TestCoordinator_Join_NameInvalid(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	observer := f.join(t, "conn-observer", "observer")
	before := len(observer.types())

	f.connect("conn-1")
	err := f.coordinator.Join(ctx, domain.JoinCommand{ConnectionID: "conn-1", Username: "<sara>"})

	req.ErrorIs(err, errors.ErrNameInvalid)
	// No participant was created and nothing was broadcast
	req.Len(observer.types(), before)
	req.ErrorIs(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{
		ConnectionID: "conn-1", Body: "hi",
	}), errors.ErrNotJoined)
}

func TestCoordinator_SendMessage_BroadcastsToAll(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	sara := f.join(t, "conn-1", "Sara")
	mo := f.join(t, "conn-2", "Mo")

	req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-1", Body: "hello"}))

	for _, sink := range []*recordingSink{sara, mo} {
		appended, ok := sink.lastOf(event.MessageAppendedType)
		req.True(ok)
		msg := appended.Payload.(event.MessageAppended).Message
		req.Equal("hello", msg.Body)
		req.Equal("Sara", msg.Author)
		req.Equal(domain.KindUser, msg.Kind)
	}
}

func TestCoordinator_SendMessage_RequiresJoin(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	f.connect("conn-1")
	err := f.coordinator.SendMessage(context.Background(), domain.SendMessageCommand{ConnectionID: "conn-1", Body: "hi"})

	req.ErrorIs(err, errors.ErrNotJoined)
}

func TestCoordinator_SendMessage_RateLimited(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	f.join(t, "conn-1", "Sara")

	// Given the participant sent up to the limit
	for i := 0; i < 15; i++ {
		req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-1", Body: "spam"}))
	}

	// Then the 16th within the window is rejected
	err := f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-1", Body: "spam"})
	req.ErrorIs(err, errors.ErrRateLimited)
}

func TestCoordinator_SendMessage_RejectedBodiesKeepRateBudget(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	f.join(t, "conn-1", "Sara")

	// Given a full window of rejected submissions
	for i := 0; i < 15; i++ {
		err := f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-1", Body: "   "})
		req.ErrorIs(err, errors.ErrMessageInvalid)
	}

	// Then a valid message still goes through: rejections consumed no budget
	req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-1", Body: "hello"}))
}

func TestCoordinator_RestoreSession_WithinGrace(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	observer := f.join(t, "conn-observer", "observer")
	sink := f.join(t, "conn-1", "Sara")
	token := f.token(t, sink)
	req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-1", Body: "hello"}))
	noticesBefore := observer.countOf(event.MessageAppendedType)

	// When Sara disconnects and reconnects with her token within the grace period
	f.registry.Unsubscribe("conn-1")
	f.coordinator.Disconnect("conn-1")
	restored := f.connect("conn-2")
	req.NoError(f.coordinator.RestoreSession(ctx, domain.RestoreSessionCommand{ConnectionID: "conn-2", Token: token}))

	// Then she is the same participant, rebound to the new connection
	state, ok := restored.lastOf(event.RestoredStateType)
	req.True(ok)
	payload := state.Payload.(event.RestoredState)
	req.Equal("Sara", payload.Self.Username)
	req.Equal(domain.RoleUser, payload.Self.Role)

	// And the roster still shows exactly one Sara
	saras := lo.Filter(payload.Roster, func(e domain.RosterEntry, _ int) bool { return e.Username == "Sara" })
	req.Len(saras, 1)

	// And no leave/join system message pair appears, even after the
	// original grace deadline passes
	time.Sleep(2 * testGracePeriod)
	req.Equal(noticesBefore, observer.countOf(event.MessageAppendedType))

	// And her session still works on the new connection
	req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-2", Body: "back"}))
}

func TestCoordinator_RestoreSession_UnknownToken(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	f.connect("conn-1")
	err := f.coordinator.RestoreSession(context.Background(), domain.RestoreSessionCommand{
		ConnectionID: "conn-1",
		Token:        "not-a-token",
	})

	req.ErrorIs(err, errors.ErrSessionNotFound)
}

func TestCoordinator_Disconnect_GraceExpiryRemovesParticipant(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	observer := f.join(t, "conn-observer", "observer")
	sink := f.join(t, "conn-1", "Sara")
	token := f.token(t, sink)

	// When Sara disconnects and the grace period expires
	f.registry.Unsubscribe("conn-1")
	f.coordinator.Disconnect("conn-1")
	time.Sleep(3 * testGracePeriod)

	// Then a system "left" notice and roster update reach the others
	notice, ok := observer.lastOf(event.MessageAppendedType)
	req.True(ok)
	req.Contains(notice.Payload.(event.MessageAppended).Message.Body, "left the chat")
	count, ok := observer.lastOf(event.UserCountType)
	req.True(ok)
	req.Equal(1, count.Payload.(event.UserCount).Count)

	// And the session token is gone for good
	f.connect("conn-2")
	err := f.coordinator.RestoreSession(context.Background(), domain.RestoreSessionCommand{
		ConnectionID: "conn-2",
		Token:        token,
	})
	req.ErrorIs(err, errors.ErrSessionNotFound)

	// And the freed name may be claimed by someone else
	f.join(t, "conn-3", "sara")
}

func TestCoordinator_Kick_DeniedForUserRole(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	f.join(t, "conn-1", "Sara")
	target := f.join(t, "conn-2", "Mo")
	kickedBefore := target.countOf(event.UserKickedType)

	// When a plain user tries to kick
	err := f.coordinator.Kick(ctx, domain.KickCommand{ConnectionID: "conn-1", TargetUsername: "Mo", Reason: "nope"})

	// Then the denial goes to the requester only, with no broadcast
	req.ErrorIs(err, errors.ErrPermissionDenied)
	req.Equal(kickedBefore, target.countOf(event.UserKickedType))
	req.Zero(target.countOf(event.KickedType))
}

func TestCoordinator_Kick_ByModerator(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	audit := mocks.NewMockIAuditRepository(ctrl)
	audit.EXPECT().Store(gomock.Any()).Return(nil).Times(1)

	f := newFixture(t, audit)
	ctx := context.Background()
	moderator := f.join(t, "conn-1", "mod_sara")
	target := f.join(t, "conn-2", "troll99")

	req.NoError(f.coordinator.Kick(ctx, domain.KickCommand{
		ConnectionID:   "conn-1",
		TargetUsername: "troll99",
		Reason:         "spamming",
	}))

	// The target is notified privately
	kicked, ok := target.lastOf(event.KickedType)
	req.True(ok)
	req.Equal("spamming", kicked.Payload.(event.Kicked).Reason)

	// And everyone sees the removal broadcast
	broadcast, ok := moderator.lastOf(event.UserKickedType)
	req.True(ok)
	payload := broadcast.Payload.(event.UserKicked)
	req.Equal("troll99", payload.Username)
	req.Equal("mod_sara", payload.By)
}

func TestCoordinator_DeleteMessage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	audit := mocks.NewMockIAuditRepository(ctrl)
	audit.EXPECT().Store(gomock.Any()).Return(nil).Times(1)

	f := newFixture(t, audit)
	ctx := context.Background()
	moderator := f.join(t, "conn-1", "mod_sara")
	f.join(t, "conn-2", "Mo")
	req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-2", Body: "oops"}))

	appended, ok := moderator.lastOf(event.MessageAppendedType)
	req.True(ok)
	id := appended.Payload.(event.MessageAppended).Message.ID

	// When the moderator deletes it
	req.NoError(f.coordinator.DeleteMessage(ctx, domain.DeleteMessageCommand{ConnectionID: "conn-1", MessageID: id}))

	// Then only the identifying key is broadcast
	deleted, ok := moderator.lastOf(event.MessageDeletedType)
	req.True(ok)
	req.Equal(id, deleted.Payload.(event.MessageDeleted).ID)

	// And deleting it again is a silent no-op
	before := moderator.countOf(event.MessageDeletedType)
	req.NoError(f.coordinator.DeleteMessage(ctx, domain.DeleteMessageCommand{ConnectionID: "conn-1", MessageID: id}))
	req.Equal(before, moderator.countOf(event.MessageDeletedType))
}

func TestCoordinator_ClearChat_AdminScenario(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	audit := mocks.NewMockIAuditRepository(ctrl)
	audit.EXPECT().Store(gomock.Any()).Return(nil).Times(1)

	f := newFixture(t, audit)
	ctx := context.Background()

	// Given admin_mo, whose role resolves to admin via the keyword match
	admin := f.join(t, "conn-1", "admin_mo")
	user := f.join(t, "conn-2", "Sara")
	req.NoError(f.coordinator.SendMessage(ctx, domain.SendMessageCommand{ConnectionID: "conn-2", Body: "hello"}))

	// A moderator may not clear, only an admin
	f.join(t, "conn-3", "mod_nina")
	req.ErrorIs(f.coordinator.ClearChat(ctx, domain.ClearChatCommand{ConnectionID: "conn-3"}), errors.ErrPermissionDenied)

	// When the admin clears the chat
	req.NoError(f.coordinator.ClearChat(ctx, domain.ClearChatCommand{ConnectionID: "conn-1"}))

	// Then the log is empty and everyone received the clear notice
	req.Zero(f.coordinator.Stats()["messages"])
	for _, sink := range []*recordingSink{admin, user} {
		cleared, ok := sink.lastOf(event.ChatClearedType)
		req.True(ok)
		req.Equal("admin_mo", cleared.Payload.(event.ChatCleared).By)
	}
}

func TestCoordinator_RoleAssignmentByKeyword(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	tests := []struct {
		conn     string
		username string
		expected domain.Role
	}{
		{conn: "conn-1", username: "admin_mo", expected: domain.RoleAdmin},
		{conn: "conn-2", username: "mod_sara", expected: domain.RoleModerator},
		{conn: "conn-3", username: "just_nina", expected: domain.RoleUser},
	}
	for _, tt := range tests {
		sink := f.join(t, tt.conn, tt.username)
		joined, ok := sink.lastOf(event.JoinedStateType)
		req.True(ok)
		req.Equal(tt.expected, joined.Payload.(event.JoinedState).Self.Role, tt.username)
	}
}
