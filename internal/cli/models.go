package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/animeshkundu/fix/internal/common/fsutil"
	"github.com/animeshkundu/fix/internal/config"
	"github.com/animeshkundu/fix/internal/registry"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models from HuggingFace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd.Context(), os.Stdout, os.Stderr, newClient(), loadConfig())
		},
	}
}

func listModels(ctx context.Context, out, errw io.Writer, client *registry.Client, cfg config.Config) error {
	fmt.Fprintln(errw, "Fetching available models...")
	models, err := client.List(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "No models available in repository.")
		return nil
	}

	fmt.Fprintln(out, "\nAvailable models:")
	for _, m := range models {
		current := ""
		if m.Name == cfg.DefaultModel {
			current = " [current]"
		}
		fmt.Fprintf(out, "  %s  (%.0f MB)%s\n", m.Name, m.SizeMB(), current)
	}
	fmt.Fprintln(out)
	return nil
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Download a model and set it as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return useModel(cmd.Context(), os.Stderr, newClient(), config.Path(), args[0])
		},
	}
}

func useModel(ctx context.Context, errw io.Writer, client *registry.Client, cfgPath, name string) error {
	cfg := config.Load(cfgPath)

	fmt.Fprintln(errw, "Checking model availability...")
	path, updated, err := acquire(ctx, client, errw, cfg, name, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(errw, "✓ Downloaded to %s\n", path)

	if err := config.Save(cfgPath, updated); err != nil {
		return err
	}
	fmt.Fprintf(errw, "✓ Default model set to: %s\n", name)
	return nil
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Force re-download of the current default model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateModel(cmd.Context(), os.Stderr, newClient(), loadConfig())
		},
	}
}

func updateModel(ctx context.Context, errw io.Writer, client *registry.Client, cfg config.Config) error {
	name := cfg.DefaultModel
	fmt.Fprintf(errw, "Re-downloading %s...\n", name)
	fmt.Fprintln(errw, "Checking model availability...")
	path, _, err := acquire(ctx, client, errw, cfg, name, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(errw, "✓ Downloaded to %s\n", path)
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			showConfig(os.Stdout, loadConfig())
			return nil
		},
	}
}

func showConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Default model: %s\n", cfg.DefaultModel)
	fmt.Fprintf(out, "  Config path: %s\n", config.Path())
	modelPath := registry.ModelPath(cfg.DefaultModel)
	if fsutil.FileExists(modelPath) {
		fmt.Fprintf(out, "  Model path: %s\n", modelPath)
	} else {
		fmt.Fprintln(out, "  Model path: (not downloaded)")
	}
}
