package models

// Role identifies who emitted a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log. Content may be empty when the
// message only carries structured payloads.
type Message struct {
	Role              Role          `json:"role"`
	Content           string        `json:"content"`
	Understood        Understanding `json:"understood,omitempty"`
	Allocation        *Allocation   `json:"allocation,omitempty"`
	JargonTranslation *JargonResult `json:"jargon_translation,omitempty"`
}

// Structured reports whether the message carries any payload besides text.
func (m Message) Structured() bool {
	return m.Understood != nil || m.Allocation != nil || m.JargonTranslation != nil
}
