// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Keyword lists driving self-service role assignment on join.
// The match is a case-insensitive substring check against the username.
// This is a deliberately weak policy kept for compatibility with existing
// clients; a real deployment should assign roles out of band.
var (
	adminKeywords     = []string{"admin", "مدير"}
	moderatorKeywords = []string{"mod", "مشرف"}
)

// Participant is a joined chat identity bound to a transport connection.
// The session token is durable and immutable; the connection id is rebound
// on session restoration.
type Participant struct {
	ConnectionID string
	Username     string
	Role         Role
	AvatarColor  string
	JoinedAt     time.Time
	SessionToken string
}

// ResolveRole assigns a role by inspecting the candidate username
// against the admin and moderator keyword lists. Admin wins over moderator.
func ResolveRole(username string) Role {
	lower := strings.ToLower(username)
	for _, kw := range adminKeywords {
		if strings.Contains(lower, kw) {
			return RoleAdmin
		}
	}
	for _, kw := range moderatorKeywords {
		if strings.Contains(lower, kw) {
			return RoleModerator
		}
	}
	return RoleUser
}

// RosterEntry is the public projection of a participant sent to clients.
// The session token never leaves the server except to its owner.
type RosterEntry struct {
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	AvatarColor string    `json:"avatarColor"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func (p Participant) RosterEntry() RosterEntry {
	return RosterEntry{
		Username:    p.Username,
		Role:        p.Role,
		AvatarColor: p.AvatarColor,
		JoinedAt:    p.JoinedAt,
	}
}
