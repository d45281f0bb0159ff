package proto

type MessageRole string

const (
	Assistant MessageRole = "assistant"
	User      MessageRole = "user"
	System    MessageRole = "system"
)

func (r MessageRole) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

func (r *MessageRole) UnmarshalText(data []byte) error {
	*r = MessageRole(data)
	return nil
}

// Message is a single utterance in the conversation. Messages are never
// mutated after creation; edits always produce a new [Version].
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	TokenCount int64       `json:"token_count"`
	CreatedAt  int64       `json:"created_at"`
}

type FinishReason string

const (
	FinishReasonEndTurn   FinishReason = "end_turn"
	FinishReasonMaxTokens FinishReason = "max_tokens"

	// Should never happen
	FinishReasonUnknown FinishReason = "unknown"
)

func (fr FinishReason) MarshalText() ([]byte, error) {
	return []byte(fr), nil
}

func (fr *FinishReason) UnmarshalText(data []byte) error {
	*fr = FinishReason(data)
	return nil
}
