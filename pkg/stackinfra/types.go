package stackinfra

import (
	internalaws "github.com/eleven-am/stackinfra/internal/aws"
	"github.com/eleven-am/stackinfra/internal/config"
	"github.com/eleven-am/stackinfra/internal/domain"
	"github.com/eleven-am/stackinfra/internal/network"
	"github.com/eleven-am/stackinfra/internal/plan"
	"github.com/eleven-am/stackinfra/internal/policy"
)

type Topology = network.Topology

type Plan = plan.Plan

type PlanFormat = plan.Format

const (
	PlanFormatText = plan.FormatText
	PlanFormatYAML = plan.FormatYAML
)

type Accessor = config.Accessor

type ConfigMap = config.Map

type Registrar = domain.Registrar

type Resource = domain.Resource

type Ref = domain.Ref

type NATStrategy = domain.NATStrategy

const (
	NATSingle   = domain.NATSingle
	NATOnePerAZ = domain.NATOnePerAZ
	NATNone     = domain.NATNone
)

type Flow = policy.Flow

type Peer = policy.Peer

type EvaluationResult = policy.EvaluationResult

const (
	Inbound  = policy.Inbound
	Outbound = policy.Outbound
)

type Applier = internalaws.Applier

type ApplierOption = internalaws.Option

type Outputs = internalaws.Outputs

type MissingConfigError = domain.MissingConfigError

type InvalidConfigError = domain.InvalidConfigError

type InvalidStackError = domain.InvalidStackError

type DuplicateNameError = domain.DuplicateNameError

type UnknownDependencyError = domain.UnknownDependencyError

type UnavailableServiceError = domain.UnavailableServiceError

var ErrNotApplied = domain.ErrNotApplied
