package domain

import (
	"errors"
	"fmt"
)

var ErrNotApplied = errors.New("resource has not been applied")

type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration value %q", e.Key)
}

type InvalidConfigError struct {
	Key    string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration value %q: %s", e.Key, e.Reason)
}

type InvalidStackError struct {
	Stack  string
	Reason string
}

func (e *InvalidStackError) Error() string {
	return fmt.Sprintf("invalid stack name %q: %s", e.Stack, e.Reason)
}

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("resource %q is already declared", e.Name)
}

type UnknownDependencyError struct {
	Resource string
	Ref      Ref
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("resource %q depends on %s, which is not declared", e.Resource, e.Ref)
}

type UnavailableServiceError struct {
	Region   string
	Services []string
}

func (e *UnavailableServiceError) Error() string {
	return fmt.Sprintf("endpoint services not available in %s: %v", e.Region, e.Services)
}
