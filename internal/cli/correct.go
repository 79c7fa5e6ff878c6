package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/animeshkundu/fix/internal/config"
	"github.com/animeshkundu/fix/internal/llm"
	"github.com/animeshkundu/fix/internal/parse"
	"github.com/animeshkundu/fix/internal/registry"
	"github.com/animeshkundu/fix/internal/tools"
	"github.com/animeshkundu/fix/internal/ui"
	"github.com/animeshkundu/fix/pkg/chatml"
)

// generator is the slice of the engine the pipeline needs; tests substitute
// a fake.
type generator interface {
	Generate(ctx context.Context, conv *chatml.Conversation) (string, error)
	Close() error
}

func runCorrect(ctx context.Context, opts *rootOptions, command string) error {
	cfg := loadConfig()

	shell := opts.shellName
	if shell == "" {
		shell = tools.DetectShell()
	}

	modelPath, err := ResolveModel(ctx, newClient(), os.Stderr, opts.modelPath, cfg, opts.verbose)
	if err != nil {
		return err
	}

	params := llm.DefaultParams()
	params.GPULayers = opts.gpuLayers
	params.Stop = []string{chatml.TurnEnd, chatml.TurnStart}

	eng := llm.NewEngine(modelPath, params)
	defer eng.Close()

	// The native backend logs straight to fd 2; keep the terminal clean
	// unless the user asked to see it.
	restore := func() {}
	if !opts.verbose {
		restore = silenceStderr()
	}
	out, err := correct(ctx, eng, shell, command, opts.errText)
	restore()

	if err != nil {
		return DescribeError(err, opts.verbose)
	}
	if out == "" {
		return errors.New("Could not correct command")
	}
	fmt.Println(out)
	return nil
}

// correct runs one single-shot generation and cleans the result down to the
// corrected command line.
func correct(ctx context.Context, gen generator, shell, command, errText string) (string, error) {
	conv := chatml.NewConversation(chatml.SystemPrompt(shell))
	conv.AddUser(command)
	if errText != "" {
		conv.AddError(errText)
	}

	out, err := gen.Generate(ctx, conv)
	if err != nil {
		return "", err
	}
	return parse.Clean(out), nil
}

// ResolveModel finds the model weights on disk, acquiring the configured
// default from the remote catalog when no local copy exists. An explicit
// override path must exist; it never falls through to search or download.
func ResolveModel(ctx context.Context, client *registry.Client, errw io.Writer, override string, cfg config.Config, verbose bool) (string, error) {
	path, err := registry.Locate(override, cfg.DefaultModel)
	if err == nil {
		return path, nil
	}
	if registry.IsOverrideMissing(err) {
		return "", err
	}

	fmt.Fprintln(errw, "Checking model availability...")
	// In verbose runs the debug log owns stderr, not the spinner.
	quiet := verbose
	path, updated, err := acquire(ctx, client, errw, cfg, cfg.DefaultModel, quiet)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(errw, "✓ Downloaded to %s\n", path)
	if err := config.Save(config.Path(), updated); err != nil {
		fmt.Fprintf(errw, "Warning: %v\n", err)
	}
	return path, nil
}

// acquire downloads name through EnsureModel, printing the download banner
// when the transfer actually starts and rendering byte progress through a
// spinner.
func acquire(ctx context.Context, client *registry.Client, errw io.Writer, cfg config.Config, name string, quiet bool) (string, config.Config, error) {
	sp := ui.NewSpinner(quiet)
	defer sp.Finish()

	render := ui.DownloadProgress(sp, name)
	started := false
	progress := func(done, total int64) {
		if !started {
			started = true
			fmt.Fprintf(errw, "Downloading %s...\n", name)
		}
		render(done, total)
	}
	return registry.EnsureModel(ctx, client, cfg, name, progress)
}

// DescribeError shapes engine failures for the terminal. Load failures get
// the re-download hint; inference detail stays behind -v.
func DescribeError(err error, verbose bool) error {
	switch {
	case llm.IsModelLoad(err):
		return fmt.Errorf("%v\nTry re-downloading the model with: fix update", err)
	case llm.IsInference(err) && !verbose:
		return errors.New("inference failed (run with -v for details)")
	}
	return err
}
