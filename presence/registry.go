// Package presence owns the authoritative mutable set of online
// participants. It is a pure roster structure: validation, rate limiting,
// permission gates, and broadcasting live in the coordinator, which also
// serializes all access.
package presence

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/errors"
)

// Registry indexes online participants by connection id and by
// case-folded username. Usernames are unique case-insensitively among
// currently registered participants only; a name freed by grace expiry
// may be claimed by a different person afterwards.
type Registry struct {
	byConn map[string]*domain.Participant
	byName map[string]*domain.Participant
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*domain.Participant),
		byName: make(map[string]*domain.Participant),
	}
}

func fold(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Add registers a participant, failing with ErrNameTaken on a
// case-insensitive collision with a currently-online participant.
func (r *Registry) Add(p *domain.Participant) error {
	key := fold(p.Username)
	if _, ok := r.byName[key]; ok {
		return errors.ErrNameTaken
	}
	r.byName[key] = p
	r.byConn[p.ConnectionID] = p
	return nil
}

func (r *Registry) ByConnection(connectionID string) (*domain.Participant, bool) {
	p, ok := r.byConn[connectionID]
	return p, ok
}

func (r *Registry) ByUsername(username string) (*domain.Participant, bool) {
	p, ok := r.byName[fold(username)]
	return p, ok
}

// Rebind moves a participant to a new connection id, keeping both indexes
// consistent. Used by session restoration.
func (r *Registry) Rebind(p *domain.Participant, newConnectionID string) {
	if current, ok := r.byConn[p.ConnectionID]; ok && current == p {
		delete(r.byConn, p.ConnectionID)
	}
	p.ConnectionID = newConnectionID
	r.byConn[newConnectionID] = p
}

// Remove drops the participant from both indexes. Removal is idempotent:
// a stale grace timer firing after a reconnect must not evict the fresh
// registration, so indexes are only cleared when they still point at p.
func (r *Registry) Remove(p *domain.Participant) {
	if current, ok := r.byConn[p.ConnectionID]; ok && current == p {
		delete(r.byConn, p.ConnectionID)
	}
	key := fold(p.Username)
	if current, ok := r.byName[key]; ok && current == p {
		delete(r.byName, key)
	}
}

// Roster returns the current set of online participants as public entries,
// ordered by join time.
func (r *Registry) Roster() []domain.RosterEntry {
	participants := lo.Values(r.byName)
	entries := lo.Map(participants, func(p *domain.Participant, _ int) domain.RosterEntry {
		return p.RosterEntry()
	})
	// Stable presentation order for clients.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].Username < entries[j].Username
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
	return entries
}

func (r *Registry) Count() int {
	return len(r.byName)
}
