package shell

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects execution statistics per root command.
type Metrics struct {
	mu sync.RWMutex

	commands map[string]*CommandMetrics

	totalExecutions uint64
	totalErrors     uint64
	totalPanics     uint64
	totalDuration   time.Duration
}

// CommandMetrics holds metrics for one root command.
type CommandMetrics struct {
	Name          string
	Count         uint64
	ErrorCount    uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastFailed    bool
	LastRun       time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		commands: make(map[string]*CommandMetrics),
	}
}

// Record records one execution of name.
func (m *Metrics) Record(name string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalExecutions++
	m.totalDuration += duration
	if failed {
		m.totalErrors++
	}

	cm := m.commands[name]
	if cm == nil {
		cm = &CommandMetrics{
			Name:        name,
			MinDuration: duration,
			MaxDuration: duration,
		}
		m.commands[name] = cm
	}

	cm.Count++
	cm.TotalDuration += duration
	cm.LastFailed = failed
	cm.LastRun = time.Now()
	cm.MinDuration = min(cm.MinDuration, duration)
	cm.MaxDuration = max(cm.MaxDuration, duration)
	if failed {
		cm.ErrorCount++
	}
}

// RecordPanic records a recovered panic. The execution itself is counted
// by Record.
func (m *Metrics) RecordPanic(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPanics++
}

// CommandStats returns a copy of the metrics for name, or nil.
func (m *Metrics) CommandStats(name string) *CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm := m.commands[name]
	if cm == nil {
		return nil
	}
	cp := *cm
	return &cp
}

// TopCommands returns the n most executed commands.
func (m *Metrics) TopCommands(n int) []*CommandMetrics {
	return m.sorted(n, func(a, b *CommandMetrics) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
}

// SlowestCommands returns the n commands with the highest average duration.
func (m *Metrics) SlowestCommands(n int) []*CommandMetrics {
	return m.sorted(n, func(a, b *CommandMetrics) bool {
		return a.AverageDuration() > b.AverageDuration()
	})
}

func (m *Metrics) sorted(n int, less func(a, b *CommandMetrics) bool) []*CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*CommandMetrics, 0, len(m.commands))
	for _, cm := range m.commands {
		cp := *cm
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = make(map[string]*CommandMetrics)
	m.totalExecutions = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.totalDuration = 0
}

// MetricsSnapshot is a point-in-time summary of all metrics.
type MetricsSnapshot struct {
	TotalExecutions uint64
	TotalErrors     uint64
	TotalPanics     uint64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	CommandCount    int
	Timestamp       time.Time
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		TotalExecutions: m.totalExecutions,
		TotalErrors:     m.totalErrors,
		TotalPanics:     m.totalPanics,
		TotalDuration:   m.totalDuration,
		CommandCount:    len(m.commands),
		Timestamp:       time.Now(),
	}
	if m.totalExecutions > 0 {
		snapshot.AverageDuration = m.totalDuration / time.Duration(m.totalExecutions)
	}
	return snapshot
}

// AverageDuration returns the average duration of the command.
func (cm *CommandMetrics) AverageDuration() time.Duration {
	if cm.Count == 0 {
		return 0
	}
	return cm.TotalDuration / time.Duration(cm.Count)
}

// ErrorRate returns the error rate as a percentage.
func (cm *CommandMetrics) ErrorRate() float64 {
	if cm.Count == 0 {
		return 0
	}
	return float64(cm.ErrorCount) / float64(cm.Count) * 100
}
