package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/eleven-am/stackinfra/internal/domain"
	"github.com/eleven-am/stackinfra/internal/plan"
	"github.com/eleven-am/stackinfra/internal/policy"
)

type explainOptions struct {
	group     string
	outbound  bool
	peerIP    string
	peerGroup string
	protocol  string
	port      int
}

var eOpts = &explainOptions{}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show whether a declared security group admits a flow",
	Example: `  # Does the internal group accept HTTP from the load balancer group?
  stackinfra explain --stack prod --set AWS_REGION=us-east-1 \
    --group internal-sg --from-group lb-sg --port 80

  # Does the load balancer group accept HTTPS from the internet?
  stackinfra explain --stack prod --set AWS_REGION=us-east-1 \
    --group lb-sg --from-ip 203.0.113.7 --port 443`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExplain(os.Stdout, rootOpts, eOpts)
	},
}

func init() {
	explainCmd.Flags().StringVarP(&eOpts.group, "group", "g", "",
		"Security group to evaluate, with or without the stack prefix")
	explainCmd.Flags().BoolVar(&eOpts.outbound, "outbound", false,
		"Evaluate egress rules instead of ingress")
	explainCmd.Flags().StringVar(&eOpts.peerIP, "from-ip", "",
		"Address at the other end of the flow")
	explainCmd.Flags().StringVar(&eOpts.peerGroup, "from-group", "",
		"Declared security group at the other end of the flow")
	explainCmd.Flags().StringVar(&eOpts.protocol, "protocol", "tcp", "Protocol of the flow")
	explainCmd.Flags().IntVar(&eOpts.port, "port", 0, "Port of the flow")
	_ = explainCmd.MarkFlagRequired("group")
	RootCmd.AddCommand(explainCmd)
}

func runExplain(w io.Writer, ro *rootOptions, eo *explainOptions) error {
	if eo.peerIP == "" && eo.peerGroup == "" {
		return fmt.Errorf("one of --from-ip or --from-group is required")
	}

	p, _, err := buildPlan(ro)
	if err != nil {
		return err
	}
	sg, err := lookupGroup(p, eo.group)
	if err != nil {
		return err
	}

	flow := policy.Flow{
		Peer:     policy.Peer{IP: eo.peerIP},
		Protocol: eo.protocol,
		Port:     eo.port,
	}
	if eo.peerGroup != "" {
		peer, err := lookupGroup(p, eo.peerGroup)
		if err != nil {
			return err
		}
		flow.Peer.Group = peer.Name
	}

	dir := policy.Inbound
	if eo.outbound {
		dir = policy.Outbound
	}
	result := policy.Evaluate(sg, dir, flow)

	verdict := "DENIED"
	if result.Allowed {
		verdict = "ALLOWED"
	}
	fmt.Fprintf(w, "%s: %s\n", verdict, result.Reason)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rule", "Protocol", "Ports", "Match", "Reason"})
	table.SetAutoWrapText(false)
	for _, e := range result.Evaluations {
		table.Append([]string{
			fmt.Sprint(e.Index),
			e.Protocol,
			portRange(e),
			fmt.Sprint(e.Matched),
			e.Reason,
		})
	}
	table.Render()
	return nil
}

func lookupGroup(p *plan.Plan, name string) (*domain.SecurityGroup, error) {
	candidates := []string{name}
	if !strings.HasPrefix(name, p.Stack()+"-") {
		candidates = append(candidates, p.Stack()+"-"+name)
	}
	for _, c := range candidates {
		r, ok := p.Lookup(c)
		if !ok {
			continue
		}
		sg, ok := r.(*domain.SecurityGroup)
		if !ok {
			return nil, fmt.Errorf("%s is a %s, not a security group", c, r.ResourceKind())
		}
		return sg, nil
	}
	return nil, fmt.Errorf("stack %s declares no security group %s", p.Stack(), name)
}

func portRange(e policy.RuleEvaluation) string {
	if e.Protocol == "all" {
		return "all"
	}
	if e.PortFrom == e.PortTo {
		return fmt.Sprint(e.PortFrom)
	}
	return fmt.Sprintf("%d-%d", e.PortFrom, e.PortTo)
}
