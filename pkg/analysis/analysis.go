// Package analysis drives the numerical simulation of finalized circuits.
package analysis

import (
	"github.com/flebeau/GPAClib/pkg/circuit"
)

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute() error
	GetResults() map[string][]float64
}

// BaseAnalysis stores time-series results keyed by variable name; "TIME"
// holds the time axis.
type BaseAnalysis struct {
	Circuit *circuit.Circuit
	results map[string][]float64
}

func NewBaseAnalysis() *BaseAnalysis {
	return &BaseAnalysis{results: make(map[string][]float64)}
}

func (a *BaseAnalysis) StoreTimeResult(time float64, name string, value float64) {
	a.results["TIME"] = append(a.results["TIME"], time)
	a.results[name] = append(a.results[name], value)
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
