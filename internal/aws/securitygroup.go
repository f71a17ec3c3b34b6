package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/eleven-am/stackinfra/internal/domain"
)

func (a *Applier) applySecurityGroup(ctx context.Context, stack string, sg *domain.SecurityGroup, out *Outputs) error {
	vpcID, err := out.ResolveOne(sg.VPCID)
	if err != nil {
		return err
	}

	description := sg.Description
	if description == "" {
		description = "Managed by stackinfra: " + sg.Name
	}
	created, err := a.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(sg.Name),
		Description:       aws.String(description),
		VpcId:             aws.String(vpcID),
		TagSpecifications: tagSpecs(ec2types.ResourceTypeSecurityGroup, sg.Name, stack, sg.Tags),
	})
	if err != nil {
		return fmt.Errorf("create security group: %w", err)
	}
	groupID := derefString(created.GroupId)
	out.set(sg.Name, domain.AttrID, groupID)
	a.log.Info("created security group", "name", sg.Name, "id", groupID, "vpc", vpcID)

	ingress, err := toIPPermissions(sg.Ingress, groupID, out)
	if err != nil {
		return fmt.Errorf("ingress rules: %w", err)
	}
	egress, err := toIPPermissions(sg.Egress, groupID, out)
	if err != nil {
		return fmt.Errorf("egress rules: %w", err)
	}

	// Replace the implicit allow-all egress rule with the declared set.
	if _, err := a.ec2Client.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{{
			IpProtocol: aws.String(domain.ProtocolAll),
			IpRanges:   []ec2types.IpRange{{CidrIp: aws.String(anyIPv4)}},
		}},
	}); err != nil {
		return fmt.Errorf("revoke default egress on %s: %w", groupID, err)
	}

	if len(ingress) > 0 {
		if _, err := a.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: ingress,
		}); err != nil {
			return fmt.Errorf("authorize ingress on %s: %w", groupID, err)
		}
	}
	if len(egress) > 0 {
		if _, err := a.ec2Client.AuthorizeSecurityGroupEgress(ctx, &ec2.AuthorizeSecurityGroupEgressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: egress,
		}); err != nil {
			return fmt.Errorf("authorize egress on %s: %w", groupID, err)
		}
	}
	return nil
}

// toIPPermissions converts declared rules, resolving self and source-group
// references to concrete group IDs. Ports are omitted for all-traffic rules.
func toIPPermissions(rules []domain.Rule, selfID string, out *Outputs) ([]ec2types.IpPermission, error) {
	perms := make([]ec2types.IpPermission, 0, len(rules))
	for i, r := range rules {
		perm := ec2types.IpPermission{IpProtocol: aws.String(r.Protocol)}
		if !r.AllTraffic() {
			perm.FromPort = aws.Int32(int32(r.FromPort))
			perm.ToPort = aws.Int32(int32(r.ToPort))
		}

		var description *string
		if r.Description != "" {
			description = aws.String(r.Description)
		}
		for _, cidr := range r.CIDRBlocks {
			perm.IpRanges = append(perm.IpRanges, ec2types.IpRange{CidrIp: aws.String(cidr), Description: description})
		}
		if r.Self {
			perm.UserIdGroupPairs = append(perm.UserIdGroupPairs, ec2types.UserIdGroupPair{GroupId: aws.String(selfID), Description: description})
		}
		groupIDs, err := out.resolveAll(r.SecurityGroups)
		if err != nil {
			return nil, err
		}
		for _, id := range groupIDs {
			perm.UserIdGroupPairs = append(perm.UserIdGroupPairs, ec2types.UserIdGroupPair{GroupId: aws.String(id), Description: description})
		}

		if len(perm.IpRanges) == 0 && len(perm.UserIdGroupPairs) == 0 {
			return nil, fmt.Errorf("rule %d has no source or destination", i)
		}
		perms = append(perms, perm)
	}
	return perms, nil
}
