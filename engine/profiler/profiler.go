package profiler

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"
)

// Stage is a completed timing sample.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Profiler times the stages of a single load and reports heap growth across it.
// A Profiler is not safe for concurrent use; each load owns one.
type Profiler struct {
	logger          *log.Logger
	start           time.Time
	current         string
	currentStart    time.Time
	stages          []Stage
	memStats        runtime.MemStats
	startTotalAlloc uint64
	startGCCount    uint32
}

// NewProfiler creates a Profiler and snapshots the allocator state.
// A nil logger disables the summary log line.
//
// Parameters:
//   - logger: the logger the summary is written to at debug level
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *log.Logger) *Profiler {
	p := &Profiler{
		logger: logger,
		start:  time.Now(),
	}
	runtime.ReadMemStats(&p.memStats)
	p.startTotalAlloc = p.memStats.TotalAlloc
	p.startGCCount = p.memStats.NumGC
	return p
}

// Begin starts timing a stage, ending the previous one if it is still open.
//
// Parameters:
//   - name: the stage name
func (p *Profiler) Begin(name string) {
	p.End()
	p.current = name
	p.currentStart = time.Now()
}

// End closes the open stage. Calling End with no open stage is a no-op.
func (p *Profiler) End() {
	if p.current == "" {
		return
	}
	p.stages = append(p.stages, Stage{Name: p.current, Duration: time.Since(p.currentStart)})
	p.current = ""
}

// Stages returns the completed stages in the order they ran.
func (p *Profiler) Stages() []Stage {
	return p.stages
}

// Finish ends the open stage and logs the total time, allocation volume and GC count since NewProfiler.
//
// Parameters:
//   - label: identifies the load in the log line
//
// Returns:
//   - time.Duration: the total elapsed time
func (p *Profiler) Finish(label string) time.Duration {
	p.End()
	total := time.Since(p.start)
	if p.logger == nil {
		return total
	}

	runtime.ReadMemStats(&p.memStats)
	// TotalAlloc only grows, so the delta is the churn of this load (plus concurrent work)
	allocMB := float64(p.memStats.TotalAlloc-p.startTotalAlloc) / 1024 / 1024
	heapMB := float64(p.memStats.Alloc) / 1024 / 1024

	keyvals := []any{
		"load", label,
		"total", total,
		"alloc_mb", allocMB,
		"heap_mb", heapMB,
		"gc", p.memStats.NumGC - p.startGCCount,
	}
	for _, s := range p.stages {
		keyvals = append(keyvals, s.Name, s.Duration)
	}
	p.logger.Debug("profile", keyvals...)
	return total
}
