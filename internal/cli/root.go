// Package cli assembles the fix command tree and the correction pipeline
// behind it. Everything user-facing funnels through here: flag parsing,
// logging setup, model resolution, generation, and the management
// subcommands. stdout is reserved for command output; all diagnostics and
// progress go to stderr.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/animeshkundu/fix/internal/config"
	"github.com/animeshkundu/fix/internal/llm"
	"github.com/animeshkundu/fix/internal/registry"
)

type rootOptions struct {
	errText   string
	shellName string
	modelPath string
	gpuLayers int
	verbose   bool
}

// Execute runs the fix command tree and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fix [command to correct...]",
		Short:         "Fix shell command typos using a local LLM",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New(usageText)
			}
			return runCorrect(cmd.Context(), opts, strings.Join(args, " "))
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show model loading and inference logs")
	root.Flags().StringVarP(&opts.errText, "error", "e", "", "Error message from the failed command")
	root.Flags().StringVarP(&opts.shellName, "shell", "s", "", "Override shell detection (bash, zsh, fish, powershell, cmd)")
	root.Flags().StringVarP(&opts.modelPath, "model", "m", "", "Path to a local GGUF model file (overrides default)")
	root.Flags().IntVar(&opts.gpuLayers, "gpu-layers", llm.DefaultGPULayers, "Number of GPU layers to offload")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetupLogging(opts.verbose)
	}

	root.AddCommand(newModelsCmd(), newUseCmd(), newUpdateCmd(), newConfigCmd(), newToolsCmd())
	return root
}

const usageText = `Usage: fix <command>
       fix models
       fix use <name>
       fix config`

// loadConfig reads the persisted configuration from its resolved path.
func loadConfig() config.Config {
	return config.Load(config.Path())
}

func newClient() *registry.Client { return registry.NewClient() }
