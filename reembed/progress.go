// Copyright 2025 The vozpublica Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single self-overwriting progress line for a
// corpus walk.
type ProgressTracker struct {
	writer         io.Writer
	unit           string
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	width          int
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total items named unit, printing
// whenever at least reportInterval items were added since the last line.
func NewProgressTracker(writer io.Writer, unit string, total, reportInterval int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		unit:           unit,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start resets the counters and starts the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Increment adds delta processed items, capped at the total.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+delta, p.total)
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish prints the final line and terminates it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// Rate returns processed items per second.
func (p *ProgressTracker) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate()
}

func (p *ProgressTracker) rate() float64 {
	seconds := time.Since(p.startTime).Seconds()
	if !p.started || seconds <= 0 {
		return 0
	}
	return float64(p.current) / seconds
}

// ETA estimates the time left at the current rate. It is zero when nothing
// remains or no rate is known yet.
func (p *ProgressTracker) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eta()
}

func (p *ProgressTracker) eta() time.Duration {
	remaining := p.total - p.current
	r := p.rate()
	if remaining <= 0 || r <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / r * float64(time.Second)).Round(time.Second)
}

func (p *ProgressTracker) report() {
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	line := fmt.Sprintf("\r%s %d/%d (%.1f%%) %.1f %s/s",
		p.unit, p.current, p.total, percentage, p.rate(), p.unit)
	if eta := p.eta(); eta > 0 {
		line += fmt.Sprintf(" eta %s", eta)
	}
	// Pad so a shorter line fully overwrites the previous one.
	fmt.Fprintf(p.writer, "%-*s", p.width, line)
	if len(line) > p.width {
		p.width = len(line)
	}
}
