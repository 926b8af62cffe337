// Package pattern maintains per-(subject, signal type) observation streams
// and derives three auxiliary confidence signals from them: statistical
// anomaly scores, Markov transition predictions, and short-horizon linear
// forecasts. It is read-only with respect to the rest of the core; the
// decision engine may consult its outputs, nothing depends on it.
package pattern

import (
	"sync"

	"launch-sentinel/internal/domain"
)

// Window bounds.
const (
	// ObservationCap bounds the magnitude ring per stream.
	ObservationCap = 1000
	// LabelCap bounds the discrete event-label sequence per stream.
	LabelCap = 100
	// ForecastWindow is how many trailing observations feed the regression.
	ForecastWindow = 20
)

// streamKey identifies one observation stream.
type streamKey struct {
	subjectKey string
	signalType string
}

// stream holds the bounded data for one (subject, signal type) pair.
// Running sums are maintained incrementally so anomaly scoring stays O(1)
// per observation.
type stream struct {
	values []float64 // ring contents in arrival order, trimmed from front
	sum    float64
	sumSq  float64

	labels      []string // bounded discrete label sequence
	transitions map[string]map[string]int
	labelOrder  map[string][]string // fromLabel -> toLabels in first-seen order
}

// Detector owns all streams. Safe for concurrent use.
type Detector struct {
	mu      sync.RWMutex
	streams map[streamKey]*stream
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{streams: make(map[streamKey]*stream)}
}

// Observe appends a magnitude observation and returns the anomaly report
// for it. The stream grows only by append and is trimmed from the front
// once it exceeds ObservationCap.
func (d *Detector) Observe(obs domain.Observation) domain.AnomalyReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stream(obs.SubjectKey, obs.SignalType)

	// Score against the statistics of the window *before* this point so a
	// spike cannot dilute its own baseline.
	report := scoreObservation(s, obs)

	s.values = append(s.values, obs.Value)
	s.sum += obs.Value
	s.sumSq += obs.Value * obs.Value
	if len(s.values) > ObservationCap {
		old := s.values[0]
		s.values = s.values[1:]
		s.sum -= old
		s.sumSq -= old * old
	}

	return report
}

// ObserveLabel appends a discrete event label and updates the sparse
// transition-count table.
func (d *Detector) ObserveLabel(subjectKey, signalType, label string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stream(subjectKey, signalType)

	if n := len(s.labels); n > 0 {
		from := s.labels[n-1]
		row := s.transitions[from]
		if row == nil {
			row = make(map[string]int)
			s.transitions[from] = row
		}
		if _, seen := row[label]; !seen {
			s.labelOrder[from] = append(s.labelOrder[from], label)
		}
		row[label]++
	}

	s.labels = append(s.labels, label)
	if len(s.labels) > LabelCap {
		s.labels = s.labels[1:]
	}
}

// WindowSize returns the current magnitude-window length for a stream.
func (d *Detector) WindowSize(subjectKey, signalType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.streams[streamKey{subjectKey, signalType}]
	if !ok {
		return 0
	}
	return len(s.values)
}

// stream returns the stream for the key, creating it if absent.
// Caller must hold d.mu.
func (d *Detector) stream(subjectKey, signalType string) *stream {
	k := streamKey{subjectKey, signalType}
	s, ok := d.streams[k]
	if !ok {
		s = &stream{
			transitions: make(map[string]map[string]int),
			labelOrder:  make(map[string][]string),
		}
		d.streams[k] = s
	}
	return s
}
