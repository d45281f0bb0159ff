package proto

// Session is a point-in-time summary of a session store, for display and
// for external snapshotting. The store itself is the source of truth.
type Session struct {
	ID               string  `json:"id"`
	ActiveVersionID  int64   `json:"active_version_id"`
	VersionCount     int64   `json:"version_count"`
	MessageCount     int64   `json:"message_count"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
	CreatedAt        int64   `json:"created_at"`
	UpdatedAt        int64   `json:"updated_at"`
}
