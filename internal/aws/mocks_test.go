package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type mockEC2Client struct {
	mu       sync.Mutex
	counters map[string]int
	calls    []string
	failOn   map[string]error

	zones           []string
	zoneCalls       int
	endpointPages   [][]string
	endpointFilters [][]string

	vpcs              []*ec2.CreateVpcInput
	vpcAttributes     []*ec2.ModifyVpcAttributeInput
	subnets           []*ec2.CreateSubnetInput
	routes            []*ec2.CreateRouteInput
	associations      []*ec2.AssociateRouteTableInput
	natGateways       []*ec2.CreateNatGatewayInput
	dhcpOptions       []*ec2.CreateDhcpOptionsInput
	dhcpAssociations  []*ec2.AssociateDhcpOptionsInput
	securityGroups    []*ec2.CreateSecurityGroupInput
	revokedEgress     []*ec2.RevokeSecurityGroupEgressInput
	ingress           []*ec2.AuthorizeSecurityGroupIngressInput
	egress            []*ec2.AuthorizeSecurityGroupEgressInput
	endpoints         []*ec2.CreateVpcEndpointInput
	natDescribeInputs []*ec2.DescribeNatGatewaysInput
}

func newMockEC2Client() *mockEC2Client {
	return &mockEC2Client{
		counters: make(map[string]int),
		failOn:   make(map[string]error),
		zones:    []string{"us-east-1b", "us-east-1a", "us-east-1c"},
	}
}

// record notes the call and returns the next ID for prefix, or the injected
// failure for op.
func (m *mockEC2Client) record(op, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
	if err, ok := m.failOn[op]; ok {
		return "", err
	}
	m.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, m.counters[prefix]), nil
}

func (m *mockEC2Client) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *mockEC2Client) CreateVpc(ctx context.Context, params *ec2.CreateVpcInput, optFns ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
	id, err := m.record("CreateVpc", "vpc")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.vpcs = append(m.vpcs, params)
	m.mu.Unlock()
	return &ec2.CreateVpcOutput{Vpc: &ec2types.Vpc{VpcId: aws.String(id)}}, nil
}

func (m *mockEC2Client) ModifyVpcAttribute(ctx context.Context, params *ec2.ModifyVpcAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyVpcAttributeOutput, error) {
	if _, err := m.record("ModifyVpcAttribute", "attr"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.vpcAttributes = append(m.vpcAttributes, params)
	m.mu.Unlock()
	return &ec2.ModifyVpcAttributeOutput{}, nil
}

func (m *mockEC2Client) DescribeAvailabilityZones(ctx context.Context, params *ec2.DescribeAvailabilityZonesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error) {
	if _, err := m.record("DescribeAvailabilityZones", "az"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoneCalls++
	out := &ec2.DescribeAvailabilityZonesOutput{}
	for _, z := range m.zones {
		out.AvailabilityZones = append(out.AvailabilityZones, ec2types.AvailabilityZone{ZoneName: aws.String(z)})
	}
	return out, nil
}

func (m *mockEC2Client) CreateSubnet(ctx context.Context, params *ec2.CreateSubnetInput, optFns ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
	id, err := m.record("CreateSubnet", "subnet")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.subnets = append(m.subnets, params)
	m.mu.Unlock()
	return &ec2.CreateSubnetOutput{Subnet: &ec2types.Subnet{SubnetId: aws.String(id)}}, nil
}

func (m *mockEC2Client) ModifySubnetAttribute(ctx context.Context, params *ec2.ModifySubnetAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error) {
	if _, err := m.record("ModifySubnetAttribute", "attr"); err != nil {
		return nil, err
	}
	return &ec2.ModifySubnetAttributeOutput{}, nil
}

func (m *mockEC2Client) CreateInternetGateway(ctx context.Context, params *ec2.CreateInternetGatewayInput, optFns ...func(*ec2.Options)) (*ec2.CreateInternetGatewayOutput, error) {
	id, err := m.record("CreateInternetGateway", "igw")
	if err != nil {
		return nil, err
	}
	return &ec2.CreateInternetGatewayOutput{InternetGateway: &ec2types.InternetGateway{InternetGatewayId: aws.String(id)}}, nil
}

func (m *mockEC2Client) AttachInternetGateway(ctx context.Context, params *ec2.AttachInternetGatewayInput, optFns ...func(*ec2.Options)) (*ec2.AttachInternetGatewayOutput, error) {
	if _, err := m.record("AttachInternetGateway", "attach"); err != nil {
		return nil, err
	}
	return &ec2.AttachInternetGatewayOutput{}, nil
}

func (m *mockEC2Client) AllocateAddress(ctx context.Context, params *ec2.AllocateAddressInput, optFns ...func(*ec2.Options)) (*ec2.AllocateAddressOutput, error) {
	id, err := m.record("AllocateAddress", "eipalloc")
	if err != nil {
		return nil, err
	}
	return &ec2.AllocateAddressOutput{AllocationId: aws.String(id)}, nil
}

func (m *mockEC2Client) CreateNatGateway(ctx context.Context, params *ec2.CreateNatGatewayInput, optFns ...func(*ec2.Options)) (*ec2.CreateNatGatewayOutput, error) {
	id, err := m.record("CreateNatGateway", "nat")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.natGateways = append(m.natGateways, params)
	m.mu.Unlock()
	return &ec2.CreateNatGatewayOutput{NatGateway: &ec2types.NatGateway{NatGatewayId: aws.String(id)}}, nil
}

func (m *mockEC2Client) DescribeNatGateways(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
	if _, err := m.record("DescribeNatGateways", "describe"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.natDescribeInputs = append(m.natDescribeInputs, params)
	m.mu.Unlock()
	out := &ec2.DescribeNatGatewaysOutput{}
	for _, id := range params.NatGatewayIds {
		out.NatGateways = append(out.NatGateways, ec2types.NatGateway{
			NatGatewayId: aws.String(id),
			State:        ec2types.NatGatewayStateAvailable,
		})
	}
	return out, nil
}

func (m *mockEC2Client) CreateRouteTable(ctx context.Context, params *ec2.CreateRouteTableInput, optFns ...func(*ec2.Options)) (*ec2.CreateRouteTableOutput, error) {
	id, err := m.record("CreateRouteTable", "rtb")
	if err != nil {
		return nil, err
	}
	return &ec2.CreateRouteTableOutput{RouteTable: &ec2types.RouteTable{RouteTableId: aws.String(id)}}, nil
}

func (m *mockEC2Client) CreateRoute(ctx context.Context, params *ec2.CreateRouteInput, optFns ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error) {
	if _, err := m.record("CreateRoute", "route"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.routes = append(m.routes, params)
	m.mu.Unlock()
	return &ec2.CreateRouteOutput{}, nil
}

func (m *mockEC2Client) AssociateRouteTable(ctx context.Context, params *ec2.AssociateRouteTableInput, optFns ...func(*ec2.Options)) (*ec2.AssociateRouteTableOutput, error) {
	id, err := m.record("AssociateRouteTable", "rtbassoc")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.associations = append(m.associations, params)
	m.mu.Unlock()
	return &ec2.AssociateRouteTableOutput{AssociationId: aws.String(id)}, nil
}

func (m *mockEC2Client) CreateDhcpOptions(ctx context.Context, params *ec2.CreateDhcpOptionsInput, optFns ...func(*ec2.Options)) (*ec2.CreateDhcpOptionsOutput, error) {
	id, err := m.record("CreateDhcpOptions", "dopt")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.dhcpOptions = append(m.dhcpOptions, params)
	m.mu.Unlock()
	return &ec2.CreateDhcpOptionsOutput{DhcpOptions: &ec2types.DhcpOptions{DhcpOptionsId: aws.String(id)}}, nil
}

func (m *mockEC2Client) AssociateDhcpOptions(ctx context.Context, params *ec2.AssociateDhcpOptionsInput, optFns ...func(*ec2.Options)) (*ec2.AssociateDhcpOptionsOutput, error) {
	if _, err := m.record("AssociateDhcpOptions", "doptassoc"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.dhcpAssociations = append(m.dhcpAssociations, params)
	m.mu.Unlock()
	return &ec2.AssociateDhcpOptionsOutput{}, nil
}

func (m *mockEC2Client) CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	id, err := m.record("CreateSecurityGroup", "sg")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.securityGroups = append(m.securityGroups, params)
	m.mu.Unlock()
	return &ec2.CreateSecurityGroupOutput{GroupId: aws.String(id)}, nil
}

func (m *mockEC2Client) RevokeSecurityGroupEgress(ctx context.Context, params *ec2.RevokeSecurityGroupEgressInput, optFns ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error) {
	if _, err := m.record("RevokeSecurityGroupEgress", "revoke"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.revokedEgress = append(m.revokedEgress, params)
	m.mu.Unlock()
	return &ec2.RevokeSecurityGroupEgressOutput{}, nil
}

func (m *mockEC2Client) AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	if _, err := m.record("AuthorizeSecurityGroupIngress", "ingress"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.ingress = append(m.ingress, params)
	m.mu.Unlock()
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func (m *mockEC2Client) AuthorizeSecurityGroupEgress(ctx context.Context, params *ec2.AuthorizeSecurityGroupEgressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupEgressOutput, error) {
	if _, err := m.record("AuthorizeSecurityGroupEgress", "egress"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.egress = append(m.egress, params)
	m.mu.Unlock()
	return &ec2.AuthorizeSecurityGroupEgressOutput{}, nil
}

func (m *mockEC2Client) CreateVpcEndpoint(ctx context.Context, params *ec2.CreateVpcEndpointInput, optFns ...func(*ec2.Options)) (*ec2.CreateVpcEndpointOutput, error) {
	id, err := m.record("CreateVpcEndpoint", "vpce")
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.endpoints = append(m.endpoints, params)
	m.mu.Unlock()
	return &ec2.CreateVpcEndpointOutput{VpcEndpoint: &ec2types.VpcEndpoint{VpcEndpointId: aws.String(id)}}, nil
}

func (m *mockEC2Client) DescribeVpcEndpointServices(ctx context.Context, params *ec2.DescribeVpcEndpointServicesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcEndpointServicesOutput, error) {
	if _, err := m.record("DescribeVpcEndpointServices", "svc"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range params.Filters {
		m.endpointFilters = append(m.endpointFilters, f.Values)
	}

	page := 0
	if params.NextToken != nil {
		fmt.Sscanf(*params.NextToken, "page-%d", &page)
	}
	out := &ec2.DescribeVpcEndpointServicesOutput{}
	if page < len(m.endpointPages) {
		out.ServiceNames = m.endpointPages[page]
	}
	if page+1 < len(m.endpointPages) {
		out.NextToken = aws.String(fmt.Sprintf("page-%d", page+1))
	}
	return out, nil
}

type mockSTSClient struct {
	account string
	err     error
}

func (m *mockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(m.account)}, nil
}
