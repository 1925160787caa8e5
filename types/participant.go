package types

import "strings"

// User sentinel identity. The user never votes and is never persisted as an agent.
const (
	UserAlias       = "Avatar"
	UserDescription = "a user who seeks for help"
)

// Participant 对话参与者（用户或 Agent）
type Participant struct {
	Alias       string `json:"alias"`
	Description string `json:"description"`
	Avatar      string `json:"avatar,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// User returns the fixed user participant.
func User() Participant {
	return Participant{Alias: UserAlias, Description: UserDescription}
}

// IsUser reports whether p is the user sentinel.
func (p Participant) IsUser() bool {
	return SameAlias(p.Alias, UserAlias)
}

// SameAlias compares aliases the way vote parsing does: case-insensitively.
func SameAlias(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Group 可持久化的群组记录
type Group struct {
	Name         string    `json:"name" bson:"_id"`
	Agents       []string  `json:"agents" bson:"agents"`
	Conversation []Message `json:"conversation" bson:"conversation"`
}

// Clone returns a deep copy of g.
func (g Group) Clone() Group {
	return Group{
		Name:         g.Name,
		Agents:       append([]string(nil), g.Agents...),
		Conversation: CopyMessages(g.Conversation),
	}
}
