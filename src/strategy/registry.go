package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps a normalized version string to its engine.
type Registry struct {
	engines map[string]Engine
}

// NormalizeVersion trims and lower-cases a version key.
func NormalizeVersion(version string) string {
	return strings.ToLower(strings.TrimSpace(version))
}

func NewRegistry(engines ...Engine) (*Registry, error) {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		key := NormalizeVersion(e.Version())
		if key == "" {
			return nil, ErrVersionRequired
		}
		if _, ok := r.engines[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, key)
		}
		r.engines[key] = e
	}
	return r, nil
}

// Require returns the engine registered for version. Callers use it at startup so an
// unknown active version never reaches evaluation.
func (r *Registry) Require(version string) (Engine, error) {
	key := NormalizeVersion(version)
	if key == "" {
		return nil, ErrVersionRequired
	}
	e, ok := r.engines[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %s)", ErrUnknownVersion, key, strings.Join(r.Versions(), ","))
	}
	return e, nil
}

// Versions lists the registered versions in sorted order.
func (r *Registry) Versions() []string {
	out := make([]string, 0, len(r.engines))
	for k := range r.engines {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) RequiredWarmupCandles(version string, params Params) (int, error) {
	e, err := r.engineFor(version, params)
	if err != nil {
		return 0, err
	}
	return e.RequiredWarmupCandles(params)
}

func (r *Registry) Evaluate(version string, input Input) (Evaluation, error) {
	e, err := r.engineFor(version, input.Params)
	if err != nil {
		return Evaluation{}, err
	}
	return e.Evaluate(input)
}

func (r *Registry) engineFor(version string, params Params) (Engine, error) {
	e, err := r.Require(version)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, fmt.Errorf("%w: params are required", ErrInvalidParams)
	}
	if NormalizeVersion(params.Version()) != NormalizeVersion(e.Version()) {
		return nil, fmt.Errorf("%w: engine %s cannot take %s params", ErrInvalidParams, e.Version(), params.Version())
	}
	return e, nil
}
