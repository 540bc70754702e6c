package llm

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the full input to an LLM completion call.
type Prompt struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// NewExchange builds the two-message prompt used for a field run: the
// instruction as system message and the input as the single user message.
func NewExchange(instruction, input string) *Prompt {
	return &Prompt{
		SystemPrompt: instruction,
		Messages:     []Message{{Role: RoleUser, Content: input}},
	}
}

// UserText returns the content of the last user message, or "".
func (p *Prompt) UserText() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}
