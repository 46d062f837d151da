// Package sessions indexes participants by their durable session token.
// Owning the participant is the presence registry's job; the store is a
// back-reference used purely for reconnection lookup.
package sessions

import (
	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/errors"
)

// Store maps session tokens to live participants. It carries no expiry
// policy of its own; entries are dropped when the presence grace window
// decides the participant is gone. Access is serialized by the coordinator.
type Store struct {
	byToken map[string]*domain.Participant
}

func NewStore() *Store {
	return &Store{byToken: make(map[string]*domain.Participant)}
}

func (s *Store) Put(token string, p *domain.Participant) {
	s.byToken[token] = p
}

// Lookup resolves a token to its participant in O(1).
func (s *Store) Lookup(token string) (*domain.Participant, error) {
	p, ok := s.byToken[token]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return p, nil
}

// Rebind points the participant behind the token at a new transport
// connection. Restoration keys on the token, not the connection id, which
// is what lets it bypass the grace-timer removal race.
func (s *Store) Rebind(token, newConnectionID string) error {
	p, ok := s.byToken[token]
	if !ok {
		return errors.ErrSessionNotFound
	}
	p.ConnectionID = newConnectionID
	return nil
}

func (s *Store) Drop(token string) {
	delete(s.byToken, token)
}

func (s *Store) Len() int {
	return len(s.byToken)
}
