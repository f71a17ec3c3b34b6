package domain

type Kind string

const (
	KindVPC                    Kind = "vpc"
	KindDHCPOptions            Kind = "dhcp-options"
	KindDHCPOptionsAssociation Kind = "dhcp-options-association"
	KindSecurityGroup          Kind = "security-group"
	KindVPCEndpoint            Kind = "vpc-endpoint"
)

// Resource is a single declared piece of infrastructure. Implementations are
// plain values; nothing about them changes after they are registered.
type Resource interface {
	ResourceName() string
	ResourceKind() Kind
	DependsOn() []Ref
}

type Attribute string

const (
	AttrID               Attribute = "id"
	AttrVPCID            Attribute = "vpc_id"
	AttrPrivateSubnetIDs Attribute = "private_subnet_ids"
	AttrPublicSubnetIDs  Attribute = "public_subnet_ids"
)

// Ref points at an output of another declared resource. It is resolved only
// when the plan is submitted.
type Ref struct {
	Resource  string
	Attribute Attribute
}

func RefTo(r Resource, attr Attribute) Ref {
	return Ref{Resource: r.ResourceName(), Attribute: attr}
}

func (r Ref) String() string {
	return r.Resource + "." + string(r.Attribute)
}

func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r Ref) IsZero() bool {
	return r.Resource == ""
}

type NATStrategy string

const (
	NATSingle   NATStrategy = "single"
	NATOnePerAZ NATStrategy = "one-per-az"
	NATNone     NATStrategy = "none"
)

func (s NATStrategy) Valid() bool {
	switch s {
	case NATSingle, NATOnePerAZ, NATNone:
		return true
	}
	return false
}

// Gateways returns how many NAT gateways the strategy needs for azCount zones.
func (s NATStrategy) Gateways(azCount int) int {
	switch s {
	case NATSingle:
		return 1
	case NATOnePerAZ:
		return azCount
	}
	return 0
}

type SubnetTier string

const (
	TierPublic  SubnetTier = "public"
	TierPrivate SubnetTier = "private"
)

type SubnetLayout struct {
	Tier      SubnetTier `json:"tier"`
	ZoneIndex int        `json:"zoneIndex"`
	CIDRBlock string     `json:"cidrBlock"`
}

type VPC struct {
	Name               string            `json:"name"`
	CIDRBlock          string            `json:"cidrBlock"`
	AvailabilityZones  int               `json:"availabilityZones"`
	NATStrategy        NATStrategy       `json:"natStrategy"`
	EnableDNSHostnames bool              `json:"enableDnsHostnames"`
	EnableDNSSupport   bool              `json:"enableDnsSupport"`
	Subnets            []SubnetLayout    `json:"subnets"`
	Tags               map[string]string `json:"tags,omitempty"`
}

func (v *VPC) ResourceName() string { return v.Name }
func (v *VPC) ResourceKind() Kind   { return KindVPC }
func (v *VPC) DependsOn() []Ref     { return nil }

func (v *VPC) SubnetsInTier(tier SubnetTier) []SubnetLayout {
	var out []SubnetLayout
	for _, s := range v.Subnets {
		if s.Tier == tier {
			out = append(out, s)
		}
	}
	return out
}

type DHCPOptions struct {
	Name              string            `json:"name"`
	DomainNameServers []string          `json:"domainNameServers"`
	Tags              map[string]string `json:"tags,omitempty"`
}

func (d *DHCPOptions) ResourceName() string { return d.Name }
func (d *DHCPOptions) ResourceKind() Kind   { return KindDHCPOptions }
func (d *DHCPOptions) DependsOn() []Ref     { return nil }

type DHCPOptionsAssociation struct {
	Name          string `json:"name"`
	VPCID         Ref    `json:"vpcId"`
	DHCPOptionsID Ref    `json:"dhcpOptionsId"`
}

func (a *DHCPOptionsAssociation) ResourceName() string { return a.Name }
func (a *DHCPOptionsAssociation) ResourceKind() Kind   { return KindDHCPOptionsAssociation }
func (a *DHCPOptionsAssociation) DependsOn() []Ref {
	return []Ref{a.VPCID, a.DHCPOptionsID}
}

const ProtocolAll = "-1"

type Rule struct {
	Protocol       string   `json:"protocol"`
	FromPort       int      `json:"fromPort"`
	ToPort         int      `json:"toPort"`
	CIDRBlocks     []string `json:"cidrBlocks,omitempty"`
	Self           bool     `json:"self,omitempty"`
	SecurityGroups []Ref    `json:"securityGroups,omitempty"`
	Description    string   `json:"description,omitempty"`
}

func (r Rule) AllTraffic() bool {
	return r.Protocol == ProtocolAll
}

type SecurityGroup struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	VPCID       Ref               `json:"vpcId"`
	Ingress     []Rule            `json:"ingress"`
	Egress      []Rule            `json:"egress"`
	Tags        map[string]string `json:"tags,omitempty"`
}

func (s *SecurityGroup) ResourceName() string { return s.Name }
func (s *SecurityGroup) ResourceKind() Kind   { return KindSecurityGroup }

func (s *SecurityGroup) DependsOn() []Ref {
	deps := []Ref{s.VPCID}
	for _, rules := range [][]Rule{s.Ingress, s.Egress} {
		for _, r := range rules {
			deps = append(deps, r.SecurityGroups...)
		}
	}
	return deps
}

const EndpointTypeInterface = "Interface"

type VPCEndpoint struct {
	Name              string            `json:"name"`
	VPCID             Ref               `json:"vpcId"`
	ServiceName       string            `json:"serviceName"`
	Type              string            `json:"type"`
	PrivateDNSEnabled bool              `json:"privateDnsEnabled"`
	SubnetIDs         Ref               `json:"subnetIds"`
	SecurityGroupIDs  []Ref             `json:"securityGroupIds"`
	Tags              map[string]string `json:"tags,omitempty"`
}

func (e *VPCEndpoint) ResourceName() string { return e.Name }
func (e *VPCEndpoint) ResourceKind() Kind   { return KindVPCEndpoint }

func (e *VPCEndpoint) DependsOn() []Ref {
	deps := []Ref{e.VPCID, e.SubnetIDs}
	return append(deps, e.SecurityGroupIDs...)
}

// Registrar receives declarations from the builder. It is the provisioning
// client seen from the builder's side.
type Registrar interface {
	Register(r Resource) error
}
