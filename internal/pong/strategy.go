package pong

import (
	"fmt"
	"sort"
	"sync"
)

// Built-in strategy names.
const (
	StrategyPredictive = "predictive"
	StrategyTracker    = "tracker"
)

// ControllerFactory creates a fresh controller. Controllers keep per-paddle
// memory, so every AI participant gets its own instance.
type ControllerFactory func(court Court, opts AIOptions) Controller

var (
	strategies = make(map[string]ControllerFactory)
	strategyMu sync.RWMutex
)

func init() {
	RegisterStrategy(StrategyPredictive, func(court Court, opts AIOptions) Controller {
		return NewPredictive(court, opts)
	})
	RegisterStrategy(StrategyTracker, func(court Court, opts AIOptions) Controller {
		return NewTracker(court, opts)
	})
}

// RegisterStrategy adds an AI strategy under the given name.
// Panics if the name is already registered.
func RegisterStrategy(name string, f ControllerFactory) {
	strategyMu.Lock()
	defer strategyMu.Unlock()

	if _, exists := strategies[name]; exists {
		panic(fmt.Sprintf("pong: strategy %q already registered", name))
	}
	strategies[name] = f
}

// NewController instantiates the named strategy.
func NewController(name string, court Court, opts AIOptions) (Controller, error) {
	strategyMu.RLock()
	defer strategyMu.RUnlock()

	f, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("pong: unknown AI strategy %q", name)
	}
	return f(court, opts), nil
}

// Strategies returns the registered strategy names, sorted.
func Strategies() []string {
	strategyMu.RLock()
	defer strategyMu.RUnlock()

	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StrategyExists reports whether a strategy with the given name is registered.
func StrategyExists(name string) bool {
	strategyMu.RLock()
	defer strategyMu.RUnlock()

	_, ok := strategies[name]
	return ok
}
