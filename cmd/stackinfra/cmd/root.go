package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/eleven-am/stackinfra/internal/config"
)

type rootOptions struct {
	stack      string
	configFile string
	sets       []string
}

var rootOpts = &rootOptions{}

var RootCmd = &cobra.Command{
	Use:           "stackinfra",
	Short:         "stackinfra declares and submits the network topology of a stack",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)
	klog.InitFlags(flag.CommandLine)
	RootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// only -v is useful for a CLI
	for _, name := range []string{
		"alsologtostderr", "log_backtrace_at", "logtostderr", "stderrthreshold", "vmodule",
		"skip_log_headers", "skip_headers", "add_dir_header", "log_dir", "log_file",
		"log_file_max_size", "one_output",
	} {
		_ = RootCmd.PersistentFlags().MarkHidden(name)
	}
	_ = RootCmd.PersistentFlags().Set("skip_headers", "true")
	_ = RootCmd.PersistentFlags().Set("logtostderr", "true")

	RootCmd.PersistentFlags().StringVarP(&rootOpts.stack, "stack", "s", "",
		"Name of the stack; prefixes every declared resource")
	RootCmd.PersistentFlags().StringVarP(&rootOpts.configFile, "config", "c", "",
		"Path to an HCL stack file with top-level KEY = value attributes")
	RootCmd.PersistentFlags().StringArrayVar(&rootOpts.sets, "set", nil,
		"Set a configuration value (KEY=VALUE); may be repeated and wins over the stack file and environment")
	_ = RootCmd.MarkPersistentFlagRequired("stack")
}

// wordSepNormalizeFunc lets klog's underscore flags be spelled with dashes.
func wordSepNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}
	return pflag.NormalizedName(name)
}

// accessor layers --set values over the stack file over the environment.
func (o *rootOptions) accessor() (config.Accessor, error) {
	flags, err := config.ParseAssignments(o.sets)
	if err != nil {
		return nil, err
	}
	chain := config.Chain{flags}
	if o.configFile != "" {
		file, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		chain = append(chain, file)
	}
	return append(chain, config.Env{}), nil
}
