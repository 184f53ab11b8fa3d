package model

// HistoryRole tags who produced a conversation message.
type HistoryRole string

const (
	// RoleUser is a message typed by the user.
	RoleUser HistoryRole = "user"
	// RoleAssistant is a previous assistant reply.
	RoleAssistant HistoryRole = "assistant"
)

// HistoryMessage is one entry of the conversation log. The log is an
// immutable ordered slice passed by value into each orchestration step.
type HistoryMessage struct {
	Role    HistoryRole
	Content string
}
