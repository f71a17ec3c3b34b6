package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/eleven-am/stackinfra/internal/domain"
	"github.com/eleven-am/stackinfra/internal/plan"
)

// CheckServices verifies that every endpoint service named in p is offered in
// the applier's region. It makes no changes and is meant to run before Apply.
func (a *Applier) CheckServices(ctx context.Context, p *plan.Plan) error {
	var wanted []string
	for _, r := range p.Resources() {
		if e, ok := r.(*domain.VPCEndpoint); ok {
			wanted = append(wanted, e.ServiceName)
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	offered, err := a.endpointServices(ctx, wanted)
	if err != nil {
		return err
	}

	var missing []string
	for _, name := range wanted {
		if !offered[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &domain.UnavailableServiceError{Region: a.region, Services: missing}
	}
	return nil
}

func (a *Applier) endpointServices(ctx context.Context, names []string) (map[string]bool, error) {
	input := &ec2.DescribeVpcEndpointServicesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("service-name"), Values: names},
		},
	}

	var token *string
	started := false
	services, err := collectPages(
		ctx,
		func() bool { return !started || token != nil },
		func(ctx context.Context) (*ec2.DescribeVpcEndpointServicesOutput, error) {
			started = true
			page := *input
			page.NextToken = token
			out, err := a.ec2Client.DescribeVpcEndpointServices(ctx, &page)
			if err != nil {
				return nil, err
			}
			token = out.NextToken
			if token != nil && *token == "" {
				token = nil
			}
			return out, nil
		},
		func(out *ec2.DescribeVpcEndpointServicesOutput) []string {
			return out.ServiceNames
		},
	)
	if err != nil {
		return nil, fmt.Errorf("describe vpc endpoint services: %w", err)
	}

	offered := make(map[string]bool, len(services))
	for _, s := range services {
		offered[s] = true
	}
	return offered, nil
}

// collectPages drains a paginated API. It stops at the first error.
func collectPages[Output any, Item any](
	ctx context.Context,
	hasMore func() bool,
	nextPage func(context.Context) (Output, error),
	extract func(Output) []Item,
) ([]Item, error) {
	var items []Item
	for hasMore() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := nextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, extract(page)...)
	}
	return items, nil
}
