package domain

type Action string

const (
	ActionKickUser      Action = "kick-user"
	ActionDeleteMessage Action = "delete-message"
	ActionClearChat     Action = "clear-chat"
	ActionSearch        Action = "search-messages"
)

// permissions is the static action -> allowed roles table.
// Unknown actions are denied.
var permissions = map[Action][]Role{
	ActionKickUser:      {RoleModerator, RoleAdmin},
	ActionDeleteMessage: {RoleModerator, RoleAdmin},
	ActionClearChat:     {RoleAdmin},
	ActionSearch:        {RoleModerator, RoleAdmin},
}

// Allowed reports whether the participant's role may perform the action.
func Allowed(p Participant, action Action) bool {
	roles, ok := permissions[action]
	if !ok {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
