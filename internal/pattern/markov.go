package pattern

import "sort"

// LabelProbability is one entry of a normalized transition distribution.
type LabelProbability struct {
	Label       string
	Probability float64
}

// PredictNext returns the label most often observed after currentLabel,
// with ties broken by first-seen order. ok is false when currentLabel has
// no recorded outgoing transitions.
func (d *Detector) PredictNext(subjectKey, signalType, currentLabel string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, found := d.streams[streamKey{subjectKey, signalType}]
	if !found {
		return "", false
	}
	row := s.transitions[currentLabel]
	if len(row) == 0 {
		return "", false
	}

	best := ""
	bestCount := 0
	// Iterate in first-seen order so equal counts resolve to the earliest
	// observed successor.
	for _, label := range s.labelOrder[currentLabel] {
		if row[label] > bestCount {
			best = label
			bestCount = row[label]
		}
	}
	return best, true
}

// TransitionProbabilities normalizes the outgoing counts of fromLabel into
// a probability distribution sorted by probability descending (ties by
// first-seen order). Returns nil when fromLabel has no outgoing
// transitions.
func (d *Detector) TransitionProbabilities(subjectKey, signalType, fromLabel string) []LabelProbability {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, found := d.streams[streamKey{subjectKey, signalType}]
	if !found {
		return nil
	}
	row := s.transitions[fromLabel]
	if len(row) == 0 {
		return nil
	}

	total := 0
	for _, c := range row {
		total += c
	}

	order := s.labelOrder[fromLabel]
	probs := make([]LabelProbability, 0, len(order))
	for _, label := range order {
		probs = append(probs, LabelProbability{
			Label:       label,
			Probability: float64(row[label]) / float64(total),
		})
	}

	// Stable sort keeps first-seen order among equal probabilities.
	sort.SliceStable(probs, func(i, j int) bool {
		return probs[i].Probability > probs[j].Probability
	})
	return probs
}
