package analysis

import (
	"sort"

	"github.com/pkg/errors"
)

// History accumulates the time axis and one named series per probe key
// ("V(net)", "I(device)"). Series stay aligned with Times by index.
type History struct {
	times  []float64
	series map[string][]float64
}

func NewHistory() *History {
	return &History{series: map[string][]float64{}}
}

func (h *History) Append(t float64, values map[string]float64) {
	h.times = append(h.times, t)
	for key, v := range values {
		h.series[key] = append(h.series[key], v)
	}
}

func (h *History) Len() int { return len(h.times) }

func (h *History) Times() []float64 { return h.times }

func (h *History) Series(key string) ([]float64, error) {
	s, ok := h.series[key]
	if !ok {
		return nil, errors.Errorf("no series %s", key)
	}
	return s, nil
}

func (h *History) Keys() []string {
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
