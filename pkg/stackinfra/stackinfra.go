// Package stackinfra declares the network topology of a deployment stack and
// optionally submits it to AWS.
//
// Declaring and submitting are separate steps:
//
//	p := stackinfra.NewPlan("prod")
//	topo, err := stackinfra.Build(stackinfra.ConfigMap{"AWS_REGION": "us-east-1"}, "prod", p)
//	...
//	outputs, err := stackinfra.NewApplier(awsCfg).Apply(ctx, p)
package stackinfra

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-logr/logr"

	internalaws "github.com/eleven-am/stackinfra/internal/aws"
	"github.com/eleven-am/stackinfra/internal/config"
	"github.com/eleven-am/stackinfra/internal/domain"
	"github.com/eleven-am/stackinfra/internal/network"
	"github.com/eleven-am/stackinfra/internal/plan"
	"github.com/eleven-am/stackinfra/internal/policy"
)

// NewPlan creates an empty plan that records declarations for stack.
func NewPlan(stack string) *Plan {
	return plan.New(stack)
}

// Build declares the stack's VPC, DNS options, security groups and interface
// endpoints and registers them with reg, in dependency order.
// AWS_REGION must be present in cfg. When it is missing, or any network
// setting is invalid, Build returns an error and reg receives nothing. When
// reg itself rejects a declaration, the declarations registered before it
// stay in reg.
func Build(cfg Accessor, stack string, reg Registrar) (*Topology, error) {
	return network.Build(cfg, stack, reg)
}

// BuildPlan is Build into a fresh plan.
func BuildPlan(cfg Accessor, stack string) (*Plan, *Topology, error) {
	p := plan.New(stack)
	topo, err := network.Build(cfg, stack, p)
	if err != nil {
		return nil, nil, err
	}
	return p, topo, nil
}

// ServiceName returns the fully qualified endpoint service name, e.g.
// com.amazonaws.us-east-1.ssm.
func ServiceName(region, service string) string {
	return network.ServiceName(region, service)
}

// Env returns an Accessor backed by the process environment.
func Env() Accessor {
	return config.Env{}
}

// LoadConfigFile reads an HCL stack file of top-level attributes.
func LoadConfigFile(path string) (ConfigMap, error) {
	return config.LoadFile(path)
}

// NewApplier creates an Applier that submits plans using cfg. Calls are
// retried with exponential backoff.
func NewApplier(cfg aws.Config, opts ...ApplierOption) *Applier {
	return internalaws.NewApplier(cfg, opts...)
}

// WithLogger sets the logger used while applying.
func WithLogger(log logr.Logger) ApplierOption {
	return internalaws.WithLogger(log)
}

// WithConcurrency bounds how many independent resources are created at once.
func WithConcurrency(n int) ApplierOption {
	return internalaws.WithConcurrency(n)
}

// WithNATWait sets how long to wait for NAT gateways to become available.
func WithNATWait(d time.Duration) ApplierOption {
	return internalaws.WithNATWait(d)
}

// AllowsInbound reports whether the declared ingress rules of sg admit f.
func AllowsInbound(sg *domain.SecurityGroup, f Flow) EvaluationResult {
	return policy.Evaluate(sg, policy.Inbound, f)
}
