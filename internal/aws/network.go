package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/eleven-am/stackinfra/internal/domain"
)

const anyIPv4 = "0.0.0.0/0"

func (a *Applier) applyVPC(ctx context.Context, stack string, v *domain.VPC, out *Outputs) error {
	zones, err := a.availabilityZones(ctx)
	if err != nil {
		return err
	}
	if len(zones) < v.AvailabilityZones {
		return fmt.Errorf("region %s has %d availability zones, %d requested", a.region, len(zones), v.AvailabilityZones)
	}

	created, err := a.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         aws.String(v.CIDRBlock),
		TagSpecifications: tagSpecs(ec2types.ResourceTypeVpc, v.Name, stack, v.Tags),
	})
	if err != nil {
		return fmt.Errorf("create vpc: %w", err)
	}
	vpcID := derefString(created.Vpc.VpcId)
	out.set(v.Name, domain.AttrID, vpcID)
	out.set(v.Name, domain.AttrVPCID, vpcID)
	a.log.Info("created vpc", "name", v.Name, "id", vpcID, "cidr", v.CIDRBlock)

	// DNS support has to be on before hostnames can be enabled.
	if v.EnableDNSSupport {
		if _, err := a.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:            aws.String(vpcID),
			EnableDnsSupport: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return fmt.Errorf("enable dns support on %s: %w", vpcID, err)
		}
	}
	if v.EnableDNSHostnames {
		if _, err := a.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              aws.String(vpcID),
			EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return fmt.Errorf("enable dns hostnames on %s: %w", vpcID, err)
		}
	}

	var publicIDs, privateIDs []string
	for _, layout := range v.Subnets {
		id, err := a.createSubnet(ctx, stack, v, vpcID, zones[layout.ZoneIndex], layout)
		if err != nil {
			return err
		}
		if layout.Tier == domain.TierPublic {
			publicIDs = append(publicIDs, id)
		} else {
			privateIDs = append(privateIDs, id)
		}
	}
	out.set(v.Name, domain.AttrPublicSubnetIDs, publicIDs...)
	out.set(v.Name, domain.AttrPrivateSubnetIDs, privateIDs...)

	if len(publicIDs) > 0 {
		if err := a.createPublicRouting(ctx, stack, v, vpcID, publicIDs); err != nil {
			return err
		}
	}

	natIDs, err := a.createNATGateways(ctx, stack, v, publicIDs)
	if err != nil {
		return err
	}

	for i, subnetID := range privateIDs {
		rtName := fmt.Sprintf("%s-private-%d", v.Name, i+1)
		rtID, err := a.createRouteTable(ctx, stack, rtName, vpcID)
		if err != nil {
			return err
		}
		if len(natIDs) > 0 {
			if _, err := a.ec2Client.CreateRoute(ctx, &ec2.CreateRouteInput{
				RouteTableId:         aws.String(rtID),
				DestinationCidrBlock: aws.String(anyIPv4),
				NatGatewayId:         aws.String(natIDs[i%len(natIDs)]),
			}); err != nil {
				return fmt.Errorf("create nat route in %s: %w", rtID, err)
			}
		}
		if err := a.associateRouteTable(ctx, rtID, subnetID); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) createSubnet(ctx context.Context, stack string, v *domain.VPC, vpcID, zone string, layout domain.SubnetLayout) (string, error) {
	name := fmt.Sprintf("%s-%s-%d", v.Name, layout.Tier, layout.ZoneIndex+1)
	created, err := a.ec2Client.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:             aws.String(vpcID),
		CidrBlock:         aws.String(layout.CIDRBlock),
		AvailabilityZone:  aws.String(zone),
		TagSpecifications: tagSpecs(ec2types.ResourceTypeSubnet, name, stack, nil),
	})
	if err != nil {
		return "", fmt.Errorf("create subnet %s: %w", layout.CIDRBlock, err)
	}
	id := derefString(created.Subnet.SubnetId)

	if layout.Tier == domain.TierPublic {
		if _, err := a.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(id),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return "", fmt.Errorf("map public ip on launch for %s: %w", id, err)
		}
	}
	a.log.V(1).Info("created subnet", "name", name, "id", id, "zone", zone, "cidr", layout.CIDRBlock)
	return id, nil
}

func (a *Applier) createPublicRouting(ctx context.Context, stack string, v *domain.VPC, vpcID string, publicIDs []string) error {
	igw, err := a.ec2Client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
		TagSpecifications: tagSpecs(ec2types.ResourceTypeInternetGateway, v.Name+"-igw", stack, nil),
	})
	if err != nil {
		return fmt.Errorf("create internet gateway: %w", err)
	}
	igwID := derefString(igw.InternetGateway.InternetGatewayId)
	if _, err := a.ec2Client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
		VpcId:             aws.String(vpcID),
	}); err != nil {
		return fmt.Errorf("attach internet gateway %s to %s: %w", igwID, vpcID, err)
	}

	rtID, err := a.createRouteTable(ctx, stack, v.Name+"-public", vpcID)
	if err != nil {
		return err
	}
	if _, err := a.ec2Client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         aws.String(rtID),
		DestinationCidrBlock: aws.String(anyIPv4),
		GatewayId:            aws.String(igwID),
	}); err != nil {
		return fmt.Errorf("create internet route in %s: %w", rtID, err)
	}
	for _, subnetID := range publicIDs {
		if err := a.associateRouteTable(ctx, rtID, subnetID); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) createNATGateways(ctx context.Context, stack string, v *domain.VPC, publicIDs []string) ([]string, error) {
	n := v.NATStrategy.Gateways(v.AvailabilityZones)
	if n == 0 {
		return nil, nil
	}
	if len(publicIDs) < n {
		return nil, fmt.Errorf("%d nat gateways need as many public subnets, have %d", n, len(publicIDs))
	}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s-nat-%d", v.Name, i+1)
		eip, err := a.ec2Client.AllocateAddress(ctx, &ec2.AllocateAddressInput{
			Domain:            ec2types.DomainTypeVpc,
			TagSpecifications: tagSpecs(ec2types.ResourceTypeElasticIp, name, stack, nil),
		})
		if err != nil {
			return nil, fmt.Errorf("allocate elastic ip for %s: %w", name, err)
		}
		nat, err := a.ec2Client.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
			SubnetId:          aws.String(publicIDs[i]),
			AllocationId:      eip.AllocationId,
			TagSpecifications: tagSpecs(ec2types.ResourceTypeNatgateway, name, stack, nil),
		})
		if err != nil {
			return nil, fmt.Errorf("create nat gateway %s: %w", name, err)
		}
		ids = append(ids, derefString(nat.NatGateway.NatGatewayId))
	}

	a.log.Info("waiting for nat gateways", "vpc", v.Name, "ids", ids)
	waiter := ec2.NewNatGatewayAvailableWaiter(a.ec2Client)
	if err := waiter.Wait(ctx, &ec2.DescribeNatGatewaysInput{NatGatewayIds: ids}, a.natWait); err != nil {
		return nil, fmt.Errorf("wait for nat gateways %v: %w", ids, err)
	}
	return ids, nil
}

func (a *Applier) createRouteTable(ctx context.Context, stack, name, vpcID string) (string, error) {
	rt, err := a.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             aws.String(vpcID),
		TagSpecifications: tagSpecs(ec2types.ResourceTypeRouteTable, name, stack, nil),
	})
	if err != nil {
		return "", fmt.Errorf("create route table %s: %w", name, err)
	}
	return derefString(rt.RouteTable.RouteTableId), nil
}

func (a *Applier) associateRouteTable(ctx context.Context, rtID, subnetID string) error {
	if _, err := a.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: aws.String(rtID),
		SubnetId:     aws.String(subnetID),
	}); err != nil {
		return fmt.Errorf("associate route table %s with %s: %w", rtID, subnetID, err)
	}
	return nil
}

// availabilityZones returns the region's available zone names in sorted
// order. Results are cached per region.
func (a *Applier) availabilityZones(ctx context.Context) ([]string, error) {
	if zones, ok := a.zones.get(a.region); ok {
		return zones, nil
	}
	out, err := a.ec2Client.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("state"), Values: []string{"available"}},
			{Name: aws.String("zone-type"), Values: []string{"availability-zone"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe availability zones: %w", err)
	}
	zones := make([]string, 0, len(out.AvailabilityZones))
	for _, z := range out.AvailabilityZones {
		zones = append(zones, derefString(z.ZoneName))
	}
	sort.Strings(zones)
	a.zones.set(a.region, zones)
	return zones, nil
}
