package hook

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cmdbridge/internal/logging"
)

// Standard hook priorities.
const (
	PriorityAudit   = 1000 // Runs first (pre) / last (post)
	PriorityHistory = 500
)

// AuditHook logs every invocation and its outcome.
type AuditHook struct {
	logger *logging.Logger
}

// NewAuditHook creates an audit hook with the given logger.
func NewAuditHook(logger *logging.Logger) *AuditHook {
	return &AuditHook{logger: logger}
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

// Priority implements Hook.
func (h *AuditHook) Priority() int { return PriorityAudit }

// PreExecute logs the line being run.
func (h *AuditHook) PreExecute(inv *Invocation) error {
	h.logger.WithFields(map[string]any{
		"invocation": inv.ID.String(),
		"session":    inv.Session,
	}).Debug("execute %q", inv.Line)
	return nil
}

// PostExecute logs the outcome.
func (h *AuditHook) PostExecute(inv *Invocation, out *Outcome) {
	log := h.logger.WithFields(map[string]any{
		"invocation": inv.ID.String(),
		"command":    inv.Command,
		"duration":   out.Duration.String(),
	})
	if out.Err != nil {
		log.Warn("command failed: %v", out.Err)
		return
	}
	log.Debug("command complete: code=%d deferred=%d", out.Code, out.Deferred)
}

// Entry is a line recorded by HistoryHook.
type Entry struct {
	ID      uuid.UUID
	Line    string
	Session string
	Code    int
	Failed  bool
	At      time.Time
}

// HistoryHook keeps the most recent invocations.
type HistoryHook struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

// NewHistoryHook keeps up to capacity entries. A capacity of zero keeps
// nothing.
func NewHistoryHook(capacity int) *HistoryHook {
	return &HistoryHook{capacity: max(capacity, 0)}
}

// Name implements Hook.
func (h *HistoryHook) Name() string { return "history" }

// Priority implements Hook.
func (h *HistoryHook) Priority() int { return PriorityHistory }

// PostExecute records the invocation.
func (h *HistoryHook) PostExecute(inv *Invocation, out *Outcome) {
	if h.capacity == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == h.capacity {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, Entry{
		ID:      inv.ID,
		Line:    inv.Line,
		Session: inv.Session,
		Code:    out.Code,
		Failed:  out.Err != nil,
		At:      inv.Started,
	})
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *HistoryHook) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear discards all entries.
func (h *HistoryHook) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
