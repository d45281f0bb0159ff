package session

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejjnayak/rewind/internal/proto"
	"github.com/tejjnayak/rewind/internal/pubsub"
)

var (
	// ErrNotFound reports a version id that does not exist in the session.
	ErrNotFound = errors.New("session: version not found")

	// ErrInvalidVersion reports a version that violates the store's
	// invariants (unknown parent, shrinking token totals, bad prune
	// indexes). This signals misuse, never a transient condition.
	ErrInvalidVersion = errors.New("session: invalid version")
)

// AppendVersionParams describes the version a caller wants committed. The
// store assigns the id and timestamp.
type AppendVersionParams struct {
	ParentID         int64
	Messages         []proto.Message
	Usage            proto.TokenUsage
	CumulativeTokens int64
	Cost             float64
	Estimated        bool
}

// Service is the authoritative, append-only history of conversation
// versions. All mutating calls update the version sequence and the change
// log as one atomic step.
type Service interface {
	pubsub.Suscriber[proto.Version]
	Append(params AppendVersionParams) (int64, error)
	Restore(id int64) (proto.Version, error)
	Prune(indexes []int) (proto.Version, error)
	Label(id int64, label string) error
	Active() proto.Version
	Get(id int64) (proto.Version, error)
	Len() int
	History() iter.Seq[proto.Version]
	Log() iter.Seq[proto.ChangeLogEntry]
	Usage() []proto.UsagePoint
	Stats() proto.Session
	Shutdown()
}

type service struct {
	*pubsub.Broker[proto.Version]

	mu        sync.RWMutex
	id        string
	versions  []proto.Version
	changeLog []proto.ChangeLogEntry
	active    int64
	createdAt int64
}

// New creates a session with a single root version. The root holds the
// system prompt, if any, and carries no token usage.
func New(systemPrompt string) Service {
	now := time.Now().UnixMilli()
	s := &service{
		Broker:    pubsub.NewBroker[proto.Version](),
		id:        uuid.New().String(),
		createdAt: now,
	}

	var messages []proto.Message
	if systemPrompt != "" {
		messages = []proto.Message{{
			Role:      proto.System,
			Content:   systemPrompt,
			CreatedAt: now,
		}}
	}
	s.commit(proto.Version{Messages: messages}, proto.EventCreated, nil)
	return s
}

func (s *service) Append(params AppendVersionParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params.ParentID < 0 || params.ParentID >= int64(len(s.versions)) {
		return 0, fmt.Errorf("%w: parent %d does not exist", ErrInvalidVersion, params.ParentID)
	}
	parent := s.versions[params.ParentID]
	if params.CumulativeTokens < parent.CumulativeTokens {
		return 0, fmt.Errorf("%w: cumulative tokens decreased from %d to %d",
			ErrInvalidVersion, parent.CumulativeTokens, params.CumulativeTokens)
	}

	parentID := params.ParentID
	version := s.commit(proto.Version{
		ParentID:         &parentID,
		Messages:         slices.Clone(params.Messages),
		Usage:            params.Usage,
		CumulativeTokens: params.CumulativeTokens,
		Cost:             params.Cost,
		Estimated:        params.Estimated,
	}, proto.EventCreated, nil)
	return version.ID, nil
}

func (s *service) Restore(id int64) (proto.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= int64(len(s.versions)) {
		return proto.Version{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	target := s.versions[id]

	// A restore is a new version with its own identity, not a pointer
	// move: the target stays untouched and the copy gets its own log
	// entry. Restoring a restore-copy is allowed and simply extends the
	// lineage.
	parentID := id
	version := s.commit(proto.Version{
		ParentID:         &parentID,
		Messages:         slices.Clone(target.Messages),
		CumulativeTokens: target.CumulativeTokens,
		Cost:             target.Cost,
	}, proto.EventRestored, &target.ID)
	return version.Clone(), nil
}

func (s *service) Prune(indexes []int) (proto.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.versions[s.active]
	if len(indexes) == 0 {
		return proto.Version{}, fmt.Errorf("%w: no message indexes to prune", ErrInvalidVersion)
	}
	drop := make(map[int]struct{}, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(active.Messages) {
			return proto.Version{}, fmt.Errorf("%w: message index %d out of range", ErrInvalidVersion, i)
		}
		drop[i] = struct{}{}
	}

	kept := make([]proto.Message, 0, len(active.Messages)-len(drop))
	for i, msg := range active.Messages {
		if _, ok := drop[i]; !ok {
			kept = append(kept, msg)
		}
	}

	// Token history is preserved: pruning rewrites the transcript, not
	// the accounting.
	parentID := active.ID
	version := s.commit(proto.Version{
		ParentID:         &parentID,
		Messages:         kept,
		CumulativeTokens: active.CumulativeTokens,
		Cost:             active.Cost,
	}, proto.EventPruned, nil)
	return version.Clone(), nil
}

func (s *service) Label(id int64, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= int64(len(s.versions)) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.versions[id].Label = label
	return nil
}

func (s *service) Active() proto.Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[s.active].Clone()
}

func (s *service) Get(id int64) (proto.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= int64(len(s.versions)) {
		return proto.Version{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.versions[id].Clone(), nil
}

func (s *service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.versions)
}

// History iterates versions in chronological order. The sequence is a
// consistent snapshot and can be ranged over any number of times.
func (s *service) History() iter.Seq[proto.Version] {
	s.mu.RLock()
	snapshot := slices.Clone(s.versions)
	s.mu.RUnlock()

	return func(yield func(proto.Version) bool) {
		for _, v := range snapshot {
			if !yield(v.Clone()) {
				return
			}
		}
	}
}

// Log iterates change log entries in the order they were recorded.
func (s *service) Log() iter.Seq[proto.ChangeLogEntry] {
	s.mu.RLock()
	snapshot := slices.Clone(s.changeLog)
	s.mu.RUnlock()

	return func(yield func(proto.ChangeLogEntry) bool) {
		for _, entry := range snapshot {
			if !yield(entry) {
				return
			}
		}
	}
}

// Usage returns the token series the UI plots: one point per version, with
// per-exchange deltas and the running cumulative total.
func (s *service) Usage() []proto.UsagePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := make([]proto.UsagePoint, len(s.versions))
	for i, v := range s.versions {
		points[i] = proto.UsagePoint{
			Step:             v.ID,
			VersionID:        v.ID,
			PromptTokens:     v.Usage.PromptTokens,
			CompletionTokens: v.Usage.CompletionTokens,
			TotalTokens:      v.Usage.Total(),
			CumulativeTokens: v.CumulativeTokens,
		}
	}
	return points
}

func (s *service) Stats() proto.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Token totals and cost cover the whole history: money spent on a
	// branch stays spent after a restore. Per-version cost is cumulative
	// along the lineage, so the session total is the sum of deltas against
	// each parent; restore and prune copies carry their source's cost and
	// contribute nothing.
	var prompt, completion int64
	var spent float64
	for _, v := range s.versions {
		prompt += v.Usage.PromptTokens
		completion += v.Usage.CompletionTokens
		if parent, ok := v.Parent(); ok {
			if delta := v.Cost - s.versions[parent].Cost; delta > 0 {
				spent += delta
			}
		}
	}
	active := s.versions[s.active]
	return proto.Session{
		ID:               s.id,
		ActiveVersionID:  active.ID,
		VersionCount:     int64(len(s.versions)),
		MessageCount:     int64(len(active.Messages)),
		PromptTokens:     prompt,
		CompletionTokens: completion,
		Cost:             spent,
		CreatedAt:        s.createdAt,
		UpdatedAt:        active.CreatedAt,
	}
}

func (s *service) Shutdown() {
	s.Broker.Shutdown()
}

// commit assigns the next id, appends the version and its log entry, and
// moves the active pointer. Callers hold the write lock (or, for New, have
// exclusive access). Validation happens before commit so a failed mutation
// leaves no partial state.
func (s *service) commit(version proto.Version, event proto.ChangeEvent, restoredFrom *int64) proto.Version {
	now := time.Now().UnixMilli()
	version.ID = int64(len(s.versions))
	version.CreatedAt = now

	s.versions = append(s.versions, version)
	s.active = version.ID
	s.changeLog = append(s.changeLog, proto.ChangeLogEntry{
		Event:        event,
		VersionID:    version.ID,
		RestoredFrom: restoredFrom,
		Timestamp:    now,
	})

	s.Publish(pubsub.EventType(event), version.Clone())
	return version
}
