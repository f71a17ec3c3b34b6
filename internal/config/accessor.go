package config

import (
	"os"
	"strings"

	"github.com/eleven-am/stackinfra/internal/domain"
)

const KeyRegion = "AWS_REGION"

// Accessor is a read-only key/value view of stack configuration.
type Accessor interface {
	// Get returns the value for key and whether it was set.
	Get(key string) (string, bool)
	// Require returns the value for key or a *domain.MissingConfigError when
	// the key is absent or blank.
	Require(key string) (string, error)
}

func require(a Accessor, key string) (string, error) {
	v, ok := a.Get(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &domain.MissingConfigError{Key: key}
	}
	return v, nil
}

type Map map[string]string

func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Require(key string) (string, error) {
	return require(m, key)
}

// Env reads from the process environment.
type Env struct{}

func (Env) Get(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (e Env) Require(key string) (string, error) {
	return require(e, key)
}

// Chain consults each accessor in order and returns the first value found.
type Chain []Accessor

func (c Chain) Get(key string) (string, bool) {
	for _, a := range c {
		if a == nil {
			continue
		}
		if v, ok := a.Get(key); ok {
			return v, true
		}
	}
	return "", false
}

func (c Chain) Require(key string) (string, error) {
	return require(c, key)
}

// ParseAssignments turns KEY=VALUE pairs into a Map.
func ParseAssignments(pairs []string) (Map, error) {
	m := make(Map, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &domain.InvalidConfigError{Key: p, Reason: "expected KEY=VALUE"}
		}
		m[key] = value
	}
	return m, nil
}
