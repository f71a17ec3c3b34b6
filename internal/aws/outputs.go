package aws

import (
	"fmt"
	"sync"

	"github.com/eleven-am/stackinfra/internal/domain"
)

// Outputs holds the concrete identifiers produced by an apply, keyed by
// resource name and attribute.
type Outputs struct {
	mu     sync.RWMutex
	values map[string]map[domain.Attribute][]string
}

func NewOutputs() *Outputs {
	return &Outputs{values: make(map[string]map[domain.Attribute][]string)}
}

func (o *Outputs) set(name string, attr domain.Attribute, values ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	attrs, ok := o.values[name]
	if !ok {
		attrs = make(map[domain.Attribute][]string)
		o.values[name] = attrs
	}
	attrs[attr] = append([]string(nil), values...)
}

func (o *Outputs) Resolve(ref domain.Ref) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	vals, ok := o.values[ref.Resource][ref.Attribute]
	if !ok {
		return nil, fmt.Errorf("resolve %s: %w", ref, domain.ErrNotApplied)
	}
	return append([]string(nil), vals...), nil
}

func (o *Outputs) ResolveOne(ref domain.Ref) (string, error) {
	vals, err := o.Resolve(ref)
	if err != nil {
		return "", err
	}
	if len(vals) != 1 {
		return "", fmt.Errorf("resolve %s: expected one value, got %d", ref, len(vals))
	}
	return vals[0], nil
}

func (o *Outputs) resolveAll(refs []domain.Ref) ([]string, error) {
	var out []string
	for _, ref := range refs {
		vals, err := o.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

// Snapshot returns a copy suitable for printing.
func (o *Outputs) Snapshot() map[string]map[string][]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]map[string][]string, len(o.values))
	for name, attrs := range o.values {
		m := make(map[string][]string, len(attrs))
		for attr, vals := range attrs {
			m[string(attr)] = append([]string(nil), vals...)
		}
		out[name] = m
	}
	return out
}
