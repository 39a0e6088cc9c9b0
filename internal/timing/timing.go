package timing

import (
	"fmt"
	"sync"
	"time"
)

// FormatDuration renders d as HH:MM:SS for log lines.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Tracker records how long loads took relative to the number of stream lines
// they processed and predicts the duration of a load of a given size.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	samples map[string]*sample
}

type sample struct {
	lines    int64
	duration time.Duration
}

func NewTracker() *Tracker {
	return &Tracker{samples: make(map[string]*sample)}
}

// AddProcessingTime records one finished load of the given kind.
func (t *Tracker) AddProcessingTime(kind string, lines int, d time.Duration) {
	if lines <= 0 || d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.samples[kind]
	if !ok {
		s = &sample{}
		t.samples[kind] = s
	}
	s.lines += int64(lines)
	s.duration += d
}

// PredictProcessingTime estimates the duration of a load with the given
// number of lines. It returns false until a load of that kind was recorded.
func (t *Tracker) PredictProcessingTime(kind string, lines int) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.samples[kind]
	if !ok || s.lines == 0 {
		return 0, false
	}
	perLine := float64(s.duration) / float64(s.lines)
	return time.Duration(perLine * float64(lines)), true
}
