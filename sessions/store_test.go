package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a7al3le-dotcom/chat7ob/domain"
	"github.com/a7al3le-dotcom/chat7ob/errors"
)

func TestStore_LookupAndRebind(t *testing.T) {
	req := require.New(t)
	store := NewStore()
	sara := &domain.Participant{
		ConnectionID: "conn-1",
		Username:     "sara",
		Role:         domain.RoleUser,
		JoinedAt:     time.Now().UTC(),
		SessionToken: "token-sara",
	}

	// Given a stored session
	store.Put(sara.SessionToken, sara)

	// When the token is looked up
	found, err := store.Lookup("token-sara")
	req.NoError(err)
	req.Same(sara, found)

	// And rebound to a new connection
	req.NoError(store.Rebind("token-sara", "conn-2"))

	// Then the live participant is updated in place
	req.Equal("conn-2", sara.ConnectionID)
	req.Equal(domain.RoleUser, sara.Role)
}

func TestStore_UnknownToken(t *testing.T) {
	req := require.New(t)
	store := NewStore()

	_, err := store.Lookup("nope")
	req.ErrorIs(err, errors.ErrSessionNotFound)

	req.ErrorIs(store.Rebind("nope", "conn-9"), errors.ErrSessionNotFound)
}

func TestStore_Drop(t *testing.T) {
	req := require.New(t)
	store := NewStore()
	store.Put("token-1", &domain.Participant{Username: "sara"})

	store.Drop("token-1")

	req.Zero(store.Len())
	_, err := store.Lookup("token-1")
	req.ErrorIs(err, errors.ErrSessionNotFound)
}
