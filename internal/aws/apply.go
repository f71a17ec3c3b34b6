package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/stackinfra/internal/domain"
	"github.com/eleven-am/stackinfra/internal/plan"
)

const stackTagKey = "stack"

// Apply creates every resource in p, one dependency level at a time.
// Resources within a level are created concurrently. The first error stops
// the apply; resources already created are left in place and their
// identifiers are present in the returned Outputs.
func (a *Applier) Apply(ctx context.Context, p *plan.Plan) (*Outputs, error) {
	out := NewOutputs()
	for i, level := range p.Levels() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		a.log.V(1).Info("applying level", "level", i, "resources", len(level))

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(a.concurrency)
		for _, r := range level {
			r := r
			g.Go(func() error {
				if err := a.applyResource(gCtx, p.Stack(), r, out); err != nil {
					return fmt.Errorf("apply %s %s: %w", r.ResourceKind(), r.ResourceName(), err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (a *Applier) applyResource(ctx context.Context, stack string, r domain.Resource, out *Outputs) error {
	switch res := r.(type) {
	case *domain.VPC:
		return a.applyVPC(ctx, stack, res, out)
	case *domain.DHCPOptions:
		return a.applyDHCPOptions(ctx, stack, res, out)
	case *domain.DHCPOptionsAssociation:
		return a.applyDHCPOptionsAssociation(ctx, res, out)
	case *domain.SecurityGroup:
		return a.applySecurityGroup(ctx, stack, res, out)
	case *domain.VPCEndpoint:
		return a.applyVPCEndpoint(ctx, stack, res, out)
	}
	return fmt.Errorf("unsupported resource type %T", r)
}

func (a *Applier) applyDHCPOptions(ctx context.Context, stack string, d *domain.DHCPOptions, out *Outputs) error {
	created, err := a.ec2Client.CreateDhcpOptions(ctx, &ec2.CreateDhcpOptionsInput{
		DhcpConfigurations: []ec2types.NewDhcpConfiguration{
			{Key: aws.String("domain-name-servers"), Values: d.DomainNameServers},
		},
		TagSpecifications: tagSpecs(ec2types.ResourceTypeDhcpOptions, d.Name, stack, d.Tags),
	})
	if err != nil {
		return fmt.Errorf("create dhcp options: %w", err)
	}
	id := derefString(created.DhcpOptions.DhcpOptionsId)
	out.set(d.Name, domain.AttrID, id)
	a.log.Info("created dhcp options", "name", d.Name, "id", id)
	return nil
}

func (a *Applier) applyDHCPOptionsAssociation(ctx context.Context, assoc *domain.DHCPOptionsAssociation, out *Outputs) error {
	vpcID, err := out.ResolveOne(assoc.VPCID)
	if err != nil {
		return err
	}
	optionsID, err := out.ResolveOne(assoc.DHCPOptionsID)
	if err != nil {
		return err
	}
	if _, err := a.ec2Client.AssociateDhcpOptions(ctx, &ec2.AssociateDhcpOptionsInput{
		DhcpOptionsId: aws.String(optionsID),
		VpcId:         aws.String(vpcID),
	}); err != nil {
		return fmt.Errorf("associate dhcp options %s with %s: %w", optionsID, vpcID, err)
	}
	out.set(assoc.Name, domain.AttrID, optionsID+":"+vpcID)
	a.log.Info("associated dhcp options", "name", assoc.Name, "dhcpOptions", optionsID, "vpc", vpcID)
	return nil
}

func (a *Applier) applyVPCEndpoint(ctx context.Context, stack string, e *domain.VPCEndpoint, out *Outputs) error {
	vpcID, err := out.ResolveOne(e.VPCID)
	if err != nil {
		return err
	}
	subnetIDs, err := out.Resolve(e.SubnetIDs)
	if err != nil {
		return err
	}
	groupIDs, err := out.resolveAll(e.SecurityGroupIDs)
	if err != nil {
		return err
	}

	created, err := a.ec2Client.CreateVpcEndpoint(ctx, &ec2.CreateVpcEndpointInput{
		VpcId:             aws.String(vpcID),
		ServiceName:       aws.String(e.ServiceName),
		VpcEndpointType:   ec2types.VpcEndpointType(e.Type),
		PrivateDnsEnabled: aws.Bool(e.PrivateDNSEnabled),
		SubnetIds:         subnetIDs,
		SecurityGroupIds:  groupIDs,
		TagSpecifications: tagSpecs(ec2types.ResourceTypeVpcEndpoint, e.Name, stack, e.Tags),
	})
	if err != nil {
		return fmt.Errorf("create vpc endpoint for %s: %w", e.ServiceName, err)
	}
	id := derefString(created.VpcEndpoint.VpcEndpointId)
	out.set(e.Name, domain.AttrID, id)
	a.log.Info("created vpc endpoint", "name", e.Name, "id", id, "service", e.ServiceName)
	return nil
}

// tagSpecs tags a new resource with its declared name and stack. A declared
// Name tag wins over the resource name.
func tagSpecs(rt ec2types.ResourceType, name, stack string, extra map[string]string) []ec2types.TagSpecification {
	tags := map[string]string{"Name": name, stackTagKey: stack}
	for k, v := range extra {
		tags[k] = v
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	spec := ec2types.TagSpecification{ResourceType: rt}
	for _, k := range keys {
		spec.Tags = append(spec.Tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return []ec2types.TagSpecification{spec}
}
