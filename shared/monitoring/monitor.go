package monitoring

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"content-pilot/shared/pipeline"
)

type Monitor struct {
	mu             sync.Mutex
	lastRunSuccess bool
	lastRunTime    time.Time

	analyses  int
	succeeded int
	failures  map[string]int
	inFlight  int
}

func NewMonitor() *Monitor {
	return &Monitor{failures: make(map[string]int)}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.mu.Unlock()

	log.Printf("✅ Run completed successfully - %s (took %v)", summary, duration)
}

func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	// Don't change health status for partial failures
	log.Printf("⚠️  PARTIAL FAILURE: %s (Duration: %v)", err.Error(), duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.mu.Unlock()

	log.Printf("🚨 CRITICAL FAILURE: %s (Duration: %v)", err.Error(), duration)
	log.Printf("Failure occurred at: %s", time.Now().Format("2006-01-02 15:04:05"))
}

// RecordAnalysis counts one finished pipeline run. An empty code means the
// run succeeded.
func (m *Monitor) RecordAnalysis(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyses++
	if code == "" {
		m.succeeded++
		return
	}
	m.failures[code]++
}

// ObserveTransition is a pipeline.Observer that tracks analyses in flight.
func (m *Monitor) ObserveTransition(_ string, from, to pipeline.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case from == "" && to == pipeline.StateExtracting:
		m.inFlight++
	case to == pipeline.StateDone || to == pipeline.StateFailed:
		if m.inFlight > 0 {
			m.inFlight--
		}
	}
}

// Counters is a snapshot of the pipeline counters.
type Counters struct {
	Analyses  int
	Succeeded int
	InFlight  int
	Failures  map[string]int
}

func (m *Monitor) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()

	failures := make(map[string]int, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}
	return Counters{
		Analyses:  m.analyses,
		Succeeded: m.succeeded,
		InFlight:  m.inFlight,
		Failures:  failures,
	}
}

func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet, assume healthy
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.Lock()
	var run string
	switch {
	case m.lastRunTime.IsZero():
		run = "No runs yet"
	case m.lastRunSuccess:
		run = fmt.Sprintf("✅ Last run: %s", m.lastRunTime.Format("Jan 2 15:04"))
	default:
		run = fmt.Sprintf("❌ Last run failed: %s", m.lastRunTime.Format("Jan 2 15:04"))
	}
	m.mu.Unlock()

	c := m.Counters()
	if c.Analyses == 0 && c.InFlight == 0 {
		return run
	}
	return fmt.Sprintf("%s | analyses: %d ok, %d failed%s | in flight: %d",
		run, c.Succeeded, c.Analyses-c.Succeeded, formatFailures(c.Failures), c.InFlight)
}

func formatFailures(failures map[string]int) string {
	if len(failures) == 0 {
		return ""
	}
	codes := make([]string, 0, len(failures))
	for code := range failures {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%d", code, failures[code]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
