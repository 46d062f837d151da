package event

import (
	"time"

	"github.com/a7al3le-dotcom/chat7ob/domain"
)

type Type string

// Outbound event types pushed to clients.
const (
	JoinedStateType     Type = "joined-state"
	RestoredStateType   Type = "restored-state"
	RosterDeltaType     Type = "roster-delta"
	UserCountType       Type = "user-count"
	MessageAppendedType Type = "message-appended"
	MessageDeletedType  Type = "message-deleted"
	ChatClearedType     Type = "chat-cleared"
	UserKickedType      Type = "user-kicked"
	KickedType          Type = "kicked"
	SearchResultType    Type = "search-result"
	PongType            Type = "pong"
	ErrorType           Type = "error"
)

// Event is the envelope broadcast to connected actors.
// The payload is a structured record; transport handles framing.
type Event struct {
	Type      Type       `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	Payload   any        `json:"payload"`
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type JoinedState struct {
	Self         domain.RosterEntry   `json:"self"`
	SessionToken string               `json:"sessionToken"`
	Roster       []domain.RosterEntry `json:"roster"`
	Messages     []domain.Message     `json:"messages"`
	MessageCount int                  `json:"messageCount"`
}

type RestoredState struct {
	Self         domain.RosterEntry   `json:"self"`
	Roster       []domain.RosterEntry `json:"roster"`
	Messages     []domain.Message     `json:"messages"`
	MessageCount int                  `json:"messageCount"`
}

type RosterDelta struct {
	Roster []domain.RosterEntry `json:"roster"`
}

type UserCount struct {
	Count int `json:"count"`
}

type MessageAppended struct {
	Message domain.Message `json:"message"`
}

// MessageDeleted carries the identifying key only, not the full log,
// to bound payload size.
type MessageDeleted struct {
	ID int64 `json:"id"`
}

type ChatCleared struct {
	By string    `json:"by"`
	At time.Time `json:"at"`
}

type UserKicked struct {
	Username string `json:"username"`
	By       string `json:"by"`
	Reason   string `json:"reason"`
}

// Kicked is delivered to the target only, before the forced disconnect.
type Kicked struct {
	Reason string `json:"reason"`
}

type SearchHit struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

type SearchResult struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

type Pong struct {
	ServerTime time.Time `json:"serverTime"`
}

type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
