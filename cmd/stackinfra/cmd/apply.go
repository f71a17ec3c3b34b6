package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	internalaws "github.com/eleven-am/stackinfra/internal/aws"
	"github.com/eleven-am/stackinfra/internal/config"
)

type applyOptions struct {
	skipCheck   bool
	concurrency int
	natWait     time.Duration
}

var aOpts = &applyOptions{}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the stack's resources in AWS",
	Long: `Create every resource the stack declares, in dependency order.

Resources are created once. Nothing is compared against existing infrastructure
and nothing is rolled back when a call fails; identifiers of resources that
were created before the failure are still printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(cmd.Context(), os.Stdout, rootOpts, aOpts)
	},
}

func init() {
	applyCmd.Flags().BoolVar(&aOpts.skipCheck, "skip-service-check", false,
		"Do not verify that endpoint services exist in the region before creating anything")
	applyCmd.Flags().IntVar(&aOpts.concurrency, "concurrency", 4,
		"Maximum number of independent resources created at once")
	applyCmd.Flags().DurationVar(&aOpts.natWait, "nat-wait", 10*time.Minute,
		"How long to wait for NAT gateways to become available")
	RootCmd.AddCommand(applyCmd)
}

func runApply(ctx context.Context, w io.Writer, ro *rootOptions, ao *applyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := klog.NewKlogr().WithName("apply")

	p, cfg, err := buildPlan(ro)
	if err != nil {
		return err
	}
	region, err := cfg.Require(config.KeyRegion)
	if err != nil {
		return err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	applier := internalaws.NewApplier(awsCfg,
		internalaws.WithLogger(log),
		internalaws.WithConcurrency(ao.concurrency),
		internalaws.WithNATWait(ao.natWait),
	)

	account, err := applier.CallerAccount(ctx)
	if err != nil {
		return err
	}
	log.Info("submitting stack", "stack", p.Stack(), "account", account, "region", region, "resources", p.Len())

	if !ao.skipCheck {
		if err := applier.CheckServices(ctx, p); err != nil {
			return err
		}
	}

	out, applyErr := applier.Apply(ctx, p)
	if out != nil {
		printOutputs(w, out.Snapshot())
	}
	return applyErr
}

func printOutputs(w io.Writer, snap map[string]map[string][]string) {
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		attrs := make([]string, 0, len(snap[name]))
		for attr := range snap[name] {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			fmt.Fprintf(w, "%s.%s = %s\n", name, attr, strings.Join(snap[name][attr], ","))
		}
	}
}
