package domain

// Commands are inbound actor events. Every command carries the connection
// id of the actor that produced it; the coordinator resolves identity and
// permissions from it.

type JoinCommand struct {
	ConnectionID string
	Username     string
	AvatarColor  string
}

type SendMessageCommand struct {
	ConnectionID string
	Body         string
}

type RestoreSessionCommand struct {
	ConnectionID string
	Token        string
}

type KickCommand struct {
	ConnectionID   string
	TargetUsername string
	Reason         string
}

type DeleteMessageCommand struct {
	ConnectionID string
	MessageID    int64
}

type ClearChatCommand struct {
	ConnectionID string
}

type SearchCommand struct {
	ConnectionID string
	RawQuery     string
}
