package index

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progressTracker writes a single self-overwriting progress line while a
// build encodes records. It is safe for use by concurrent workers.
type progressTracker struct {
	mu           sync.Mutex
	writer       io.Writer
	total        int
	current      int
	interval     int
	lastReported int
	startTime    time.Time
}

// newProgressTracker reports to writer every interval records.
// A nil writer disables reporting.
func newProgressTracker(writer io.Writer, total, interval int) *progressTracker {
	if interval < 1 {
		interval = 1
	}
	return &progressTracker{
		writer:    writer,
		total:     total,
		interval:  interval,
		startTime: time.Now(),
	}
}

// add records delta more encoded records.
func (p *progressTracker) add(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = min(p.current+delta, p.total)
	if p.current-p.lastReported >= p.interval {
		p.report()
		p.lastReported = p.current
	}
}

// finish prints the final line.
func (p *progressTracker) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// elapsed returns the time since the tracker was created.
func (p *progressTracker) elapsed() time.Duration {
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *progressTracker) report() {
	if p.writer == nil {
		return
	}

	rate := float64(p.current) / max(time.Since(p.startTime).Seconds(), 1e-9)
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rEncoding: %d/%d (%.1f%%) - %.1f records/s",
		p.current, p.total, percentage, rate)
}
