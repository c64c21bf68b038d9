package types

// ConversationMessage is one turn of the history the caller resubmits on
// every request. The server never stores it.
type ConversationMessage struct {
	Role    MessageRole `json:"role"` // user or assistant
	Content string      `json:"content"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether the role is one a caller may send.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// LastMessages returns at most n trailing messages of history.
func LastMessages(history []ConversationMessage, n int) []ConversationMessage {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// AppendTurn returns a new history extended by exactly one user/assistant
// pair. The input slice is not modified.
func AppendTurn(history []ConversationMessage, query, reply string) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		ConversationMessage{Role: RoleUser, Content: query},
		ConversationMessage{Role: RoleAssistant, Content: reply},
	)
	return out
}
