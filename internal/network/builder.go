// Package network declares the per-stack network topology: one VPC, its DNS
// options, a public and an internal security group, and the interface
// endpoints private workloads need to reach AWS services.
package network

import (
	"fmt"
	"strings"

	"github.com/eleven-am/stackinfra/internal/config"
	"github.com/eleven-am/stackinfra/internal/domain"
)

const (
	AmazonProvidedDNS = "AmazonProvidedDNS"
	AnyIPv4           = "0.0.0.0/0"
	InternalSGLabel   = "allow-internal-and-outbound"
)

type endpointService struct {
	label   string
	service string
}

// Order matters: Topology.Endpoints follows it.
var endpointServices = []endpointService{
	{label: "ssm", service: "ssm"},
	{label: "ssmmessages", service: "ssmmessages"},
	{label: "ec2messages", service: "ec2messages"},
	{label: "bedrock", service: "bedrock-runtime"},
}

// Security group names are the most constrained of the declared names.
const (
	maxGroupName      = 255
	groupNameSpecials = " ._-:/()#,@[]+=&;{}!$*"
)

type Topology struct {
	Stack          string
	VPC            *domain.VPC
	DNSOptions     *domain.DHCPOptions
	DNSAssociation *domain.DHCPOptionsAssociation
	PublicSG       *domain.SecurityGroup
	InternalSG     *domain.SecurityGroup
	Endpoints      []*domain.VPCEndpoint
}

func ServiceName(region, service string) string {
	return fmt.Sprintf("com.amazonaws.%s.%s", region, service)
}

// Build declares the topology for stack and registers every resource with
// reg. Configuration is fully resolved first, so a missing or invalid value
// returns an error before reg sees any declaration. If reg rejects a
// declaration, the ones registered before it stay registered.
func Build(cfg config.Accessor, stack string, reg domain.Registrar) (*Topology, error) {
	if err := validateStack(stack); err != nil {
		return nil, err
	}

	settings, err := config.LoadNetworkSettings(cfg)
	if err != nil {
		return nil, err
	}
	subnets, err := layoutSubnets(settings.CIDRBlock, settings.AZCount)
	if err != nil {
		return nil, err
	}
	region, err := cfg.Require(config.KeyRegion)
	if err != nil {
		return nil, err
	}

	t := declare(stack, region, settings, subnets)
	for _, r := range t.Resources() {
		if err := reg.Register(r); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", r.ResourceKind(), r.ResourceName(), err)
		}
	}
	return t, nil
}

// validateStack rejects stacks whose security group names EC2 would refuse.
func validateStack(stack string) error {
	invalid := func(reason string) error {
		return &domain.InvalidStackError{Stack: stack, Reason: reason}
	}
	if strings.TrimSpace(stack) == "" {
		return invalid("must not be empty")
	}
	if strings.HasPrefix(strings.ToLower(stack+"-"), "sg-") {
		return invalid("security group names may not start with sg-")
	}
	if len(stack)+len("-internal-sg") > maxGroupName {
		return invalid(fmt.Sprintf("security group names are limited to %d characters", maxGroupName))
	}
	for _, r := range stack {
		if r > 0x7f || !(isAlnum(r) || strings.ContainsRune(groupNameSpecials, r)) {
			return invalid(fmt.Sprintf("character %q is not allowed in security group names", r))
		}
	}
	return nil
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func declare(stack, region string, settings config.NetworkSettings, subnets []domain.SubnetLayout) *Topology {
	name := func(suffix string) string { return stack + "-" + suffix }

	vpc := &domain.VPC{
		Name:               name("main-vpc"),
		CIDRBlock:          settings.CIDRBlock,
		AvailabilityZones:  settings.AZCount,
		NATStrategy:        settings.Strategy(),
		EnableDNSHostnames: true,
		EnableDNSSupport:   true,
		Subnets:            subnets,
	}
	vpcID := domain.RefTo(vpc, domain.AttrVPCID)

	dns := &domain.DHCPOptions{
		Name:              name("vpc-dns-settings"),
		DomainNameServers: []string{AmazonProvidedDNS},
	}
	assoc := &domain.DHCPOptionsAssociation{
		Name:          name("vpc-dns-association"),
		VPCID:         vpcID,
		DHCPOptionsID: domain.RefTo(dns, domain.AttrID),
	}

	public := &domain.SecurityGroup{
		Name:  name("lb-sg"),
		VPCID: vpcID,
		Ingress: []domain.Rule{
			{Protocol: "tcp", FromPort: 80, ToPort: 80, CIDRBlocks: []string{AnyIPv4}},
			{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDRBlocks: []string{AnyIPv4}},
		},
		Egress: allEgress(),
	}

	internal := &domain.SecurityGroup{
		Name:  name("internal-sg"),
		VPCID: vpcID,
		Ingress: []domain.Rule{
			{Protocol: domain.ProtocolAll, FromPort: 0, ToPort: 0, Self: true},
			{
				Protocol:       "tcp",
				FromPort:       80,
				ToPort:         80,
				SecurityGroups: []domain.Ref{domain.RefTo(public, domain.AttrID)},
			},
		},
		Egress: allEgress(),
		Tags:   map[string]string{"Name": InternalSGLabel},
	}

	endpoints := make([]*domain.VPCEndpoint, 0, len(endpointServices))
	for _, svc := range endpointServices {
		endpoints = append(endpoints, &domain.VPCEndpoint{
			Name:              name(svc.label + "-endpoint"),
			VPCID:             vpcID,
			ServiceName:       ServiceName(region, svc.service),
			Type:              domain.EndpointTypeInterface,
			PrivateDNSEnabled: true,
			SubnetIDs:         domain.RefTo(vpc, domain.AttrPrivateSubnetIDs),
			SecurityGroupIDs:  []domain.Ref{domain.RefTo(internal, domain.AttrID)},
		})
	}

	return &Topology{
		Stack:          stack,
		VPC:            vpc,
		DNSOptions:     dns,
		DNSAssociation: assoc,
		PublicSG:       public,
		InternalSG:     internal,
		Endpoints:      endpoints,
	}
}

func allEgress() []domain.Rule {
	return []domain.Rule{
		{Protocol: domain.ProtocolAll, FromPort: 0, ToPort: 0, CIDRBlocks: []string{AnyIPv4}},
	}
}

// Resources lists the declarations in dependency order.
func (t *Topology) Resources() []domain.Resource {
	out := []domain.Resource{t.VPC, t.DNSOptions, t.DNSAssociation, t.PublicSG, t.InternalSG}
	for _, e := range t.Endpoints {
		out = append(out, e)
	}
	return out
}
