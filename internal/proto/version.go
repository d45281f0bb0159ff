package proto

import "slices"

// TokenUsage holds the token counters for a single exchange with the
// completion service.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

func (u TokenUsage) Total() int64 {
	return u.PromptTokens + u.CompletionTokens
}

func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// Version is an immutable snapshot of the full message history at one point
// in the conversation. IDs are assigned by the session store and increase
// monotonically from zero (the root).
type Version struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Label    string `json:"label,omitempty"`

	Messages []Message `json:"messages"`

	// Usage is the token delta of the exchange that produced this version.
	// It is zero for the root and for restored or pruned copies.
	Usage            TokenUsage `json:"usage"`
	CumulativeTokens int64      `json:"cumulative_tokens"`
	Cost             float64    `json:"cost"`

	// Estimated marks versions whose usage was counted locally because the
	// completion service did not report it. Estimated counts are
	// deterministic but not exact.
	Estimated bool `json:"estimated,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// Parent returns the id of the version this one was derived from, if any.
// Only the root version has no parent.
func (v Version) Parent() (int64, bool) {
	if v.ParentID == nil {
		return 0, false
	}
	return *v.ParentID, true
}

// LastAssistant returns the content of the most recent assistant message,
// or the empty string if the version has none.
func (v Version) LastAssistant() string {
	for i := len(v.Messages) - 1; i >= 0; i-- {
		if v.Messages[i].Role == Assistant {
			return v.Messages[i].Content
		}
	}
	return ""
}

// Clone returns a deep copy of the version, safe to hand out to readers.
func (v Version) Clone() Version {
	v.Messages = slices.Clone(v.Messages)
	return v
}

type ChangeEvent string

const (
	EventCreated  ChangeEvent = "created"
	EventRestored ChangeEvent = "restored"
	EventPruned   ChangeEvent = "pruned"
)

func (e ChangeEvent) MarshalText() ([]byte, error) {
	return []byte(e), nil
}

func (e *ChangeEvent) UnmarshalText(data []byte) error {
	*e = ChangeEvent(data)
	return nil
}

// ChangeLogEntry records one version transition. The log is append-only.
type ChangeLogEntry struct {
	Event     ChangeEvent `json:"event"`
	VersionID int64       `json:"version_id"`

	// RestoredFrom references the version a restore copied, for audit
	// clarity. Only set on restored entries.
	RestoredFrom *int64 `json:"restored_from,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

// UsagePoint is one sample of the token-usage series the UI plots. Step
// matches the version id so restores and prunes show up as flat segments.
type UsagePoint struct {
	Step             int64 `json:"step"`
	VersionID        int64 `json:"version_id"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	CumulativeTokens int64 `json:"cumulative_tokens"`
}
