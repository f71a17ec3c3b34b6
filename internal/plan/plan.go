// Package plan records declarations and keeps them in a form that can be
// reviewed or handed to an applier.
package plan

import (
	"errors"
	"fmt"

	"github.com/eleven-am/stackinfra/internal/domain"
)

// Plan is a domain.Registrar that only records. A resource may depend only on
// resources registered before it, so the recorded graph is acyclic.
type Plan struct {
	stack     string
	resources []domain.Resource
	levels    []int
	index     map[string]int
}

func New(stack string) *Plan {
	return &Plan{
		stack: stack,
		index: make(map[string]int),
	}
}

func (p *Plan) Stack() string {
	return p.stack
}

func (p *Plan) Register(r domain.Resource) error {
	if r == nil {
		return errors.New("nil resource")
	}
	name := r.ResourceName()
	if name == "" {
		return fmt.Errorf("%s resource has no name", r.ResourceKind())
	}
	if _, exists := p.index[name]; exists {
		return &domain.DuplicateNameError{Name: name}
	}

	level := 0
	for _, dep := range r.DependsOn() {
		i, ok := p.index[dep.Resource]
		if dep.IsZero() || !ok {
			return &domain.UnknownDependencyError{Resource: name, Ref: dep}
		}
		if p.levels[i]+1 > level {
			level = p.levels[i] + 1
		}
	}

	p.index[name] = len(p.resources)
	p.resources = append(p.resources, r)
	p.levels = append(p.levels, level)
	return nil
}

// Resources returns the declarations in registration order.
func (p *Plan) Resources() []domain.Resource {
	out := make([]domain.Resource, len(p.resources))
	copy(out, p.resources)
	return out
}

func (p *Plan) Lookup(name string) (domain.Resource, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.resources[i], true
}

func (p *Plan) Len() int {
	return len(p.resources)
}

func (p *Plan) Count(kind domain.Kind) int {
	n := 0
	for _, r := range p.resources {
		if r.ResourceKind() == kind {
			n++
		}
	}
	return n
}

// Level reports the depth of the named resource in the dependency graph;
// resources without dependencies are at level 0.
func (p *Plan) Level(name string) (int, bool) {
	i, ok := p.index[name]
	if !ok {
		return 0, false
	}
	return p.levels[i], true
}

// Levels groups resources so that nothing in a group depends on anything in
// the same or a later group. Registration order is kept inside a group.
func (p *Plan) Levels() [][]domain.Resource {
	var out [][]domain.Resource
	for i, r := range p.resources {
		l := p.levels[i]
		for len(out) <= l {
			out = append(out, nil)
		}
		out[l] = append(out[l], r)
	}
	return out
}
