package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eleven-am/stackinfra/internal/config"
	"github.com/eleven-am/stackinfra/internal/network"
	"github.com/eleven-am/stackinfra/internal/plan"
)

type planOptions struct {
	output string
}

var pOpts = &planOptions{}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the resources a stack declares without contacting AWS",
	Example: `  # Review the prod stack
  stackinfra plan --stack prod --set AWS_REGION=us-east-1

  # Full specs as YAML, settings taken from a stack file
  stackinfra plan --stack prod --config prod.hcl --output yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(os.Stdout, rootOpts, pOpts)
	},
}

func init() {
	planCmd.Flags().StringVarP(&pOpts.output, "output", "o", string(plan.FormatText),
		"Output format: text or yaml")
	RootCmd.AddCommand(planCmd)
}

func buildPlan(ro *rootOptions) (*plan.Plan, config.Accessor, error) {
	cfg, err := ro.accessor()
	if err != nil {
		return nil, nil, err
	}
	p := plan.New(ro.stack)
	if _, err := network.Build(cfg, ro.stack, p); err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func runPlan(w io.Writer, ro *rootOptions, po *planOptions) error {
	p, _, err := buildPlan(ro)
	if err != nil {
		return err
	}
	return p.Render(w, plan.Format(po.output))
}
