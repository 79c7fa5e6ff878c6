// Command wit is the agentic counterpart to fix. It feeds the same
// correction inputs into a bounded tool-calling loop, letting the model
// inspect help output, PATH contents, and man pages before answering.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/animeshkundu/fix/internal/agent"
	"github.com/animeshkundu/fix/internal/cli"
	"github.com/animeshkundu/fix/internal/common/fsutil"
	"github.com/animeshkundu/fix/internal/config"
	"github.com/animeshkundu/fix/internal/discover"
	"github.com/animeshkundu/fix/internal/llm"
	"github.com/animeshkundu/fix/internal/registry"
	"github.com/animeshkundu/fix/internal/tools"
	"github.com/animeshkundu/fix/internal/ui"
	"github.com/animeshkundu/fix/pkg/chatml"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Flags with environment variable defaults
	defaultShell := os.Getenv("WIT_SHELL")
	defaultModel := os.Getenv("WIT_MODEL")

	var opts struct {
		errText      string
		shellName    string
		modelPath    string
		gpuLayers    int
		verbose      bool
		quiet        bool
		showConfig   bool
		refreshTools bool
	}
	flag.StringVar(&opts.errText, "error", "", "Error message from the failed command")
	flag.StringVar(&opts.errText, "e", "", "Shorthand for -error")
	flag.StringVar(&opts.shellName, "shell", defaultShell, "Override shell detection (bash, zsh, fish, powershell, cmd)")
	flag.StringVar(&opts.shellName, "s", defaultShell, "Shorthand for -shell")
	flag.StringVar(&opts.modelPath, "model", defaultModel, "Path to a local GGUF model file (overrides default)")
	flag.StringVar(&opts.modelPath, "m", defaultModel, "Shorthand for -model")
	flag.IntVar(&opts.gpuLayers, "gpu-layers", llm.DefaultGPULayers, "Number of GPU layers to offload")
	flag.BoolVar(&opts.verbose, "verbose", false, "Show model loading and inference logs")
	flag.BoolVar(&opts.verbose, "v", false, "Shorthand for -verbose")
	flag.BoolVar(&opts.quiet, "quiet", false, "Disable progress indicators")
	flag.BoolVar(&opts.quiet, "q", false, "Shorthand for -quiet")
	flag.BoolVar(&opts.showConfig, "show-config", false, "Show current configuration")
	flag.BoolVar(&opts.refreshTools, "refresh-tools", false, "Refresh the tool discovery cache")
	flag.Parse()

	cli.SetupLogging(opts.verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load(config.Path())

	if opts.refreshTools {
		return refreshTools(ctx)
	}
	if opts.showConfig {
		printConfig(os.Stdout, cfg)
		return 0
	}

	cache := discover.LoadOrCreate()
	if cache.NeedsRefresh() {
		if opts.verbose {
			fmt.Fprintln(os.Stderr, "Cache is stale, refreshing in background...")
		}
		// Fire and forget: this run keeps the stale cache, the next one
		// picks up the fresh scan.
		discover.RefreshBackground(ctx)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: wit <command>")
		fmt.Fprintln(os.Stderr, "       wit --show-config")
		fmt.Fprintln(os.Stderr, "       wit --refresh-tools")
		return 1
	}

	command := strings.Join(flag.Args(), " ")
	shell := opts.shellName
	if shell == "" {
		shell = tools.DetectShell()
	}

	if opts.verbose {
		fmt.Fprintf(os.Stderr, "Shell: %s\n", shell)
		fmt.Fprintf(os.Stderr, "Command: %s\n", command)
		fmt.Fprintf(os.Stderr, "Cached tools: %d\n", len(cache.Tools))
	}

	weights, err := cli.ResolveModel(ctx, registry.NewClient(), os.Stderr, opts.modelPath, cfg, opts.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	params := llm.DefaultParams()
	params.GPULayers = opts.gpuLayers
	params.Stop = []string{chatml.TurnEnd, chatml.TurnStart}
	eng := llm.NewEngine(weights, params)
	defer eng.Close()

	shellKind, ok := tools.ParseShell(shell)
	if !ok {
		shellKind = tools.Bash
	}

	// In verbose runs the debug log owns stderr, not the spinner.
	sp := ui.NewSpinner(opts.quiet || opts.verbose)
	defer sp.Finish()

	// Advance the spinner through the loop's phases: the first generation
	// analyzes the command, later ones refine it with tool results.
	rounds := 0
	generate := func(ctx context.Context, conv *chatml.Conversation) (string, error) {
		rounds++
		if rounds == 1 {
			sp.SetMessage("Analyzing...")
		} else {
			sp.SetMessage("Correcting...")
		}
		return eng.Generate(ctx, conv)
	}
	loop := agent.New(generate, tools.NewExecutor(shellKind))

	conv := chatml.NewConversation(chatml.AgentSystemPrompt(shell))
	conv.AddUser(command)
	if opts.errText != "" {
		conv.AddError(opts.errText)
	}

	sp.SetMessage("Checking command...")
	res, err := loop.Run(ctx, conv, command)
	if err != nil {
		sp.Finish()
		fmt.Fprintln(os.Stderr, cli.DescribeError(err, opts.verbose))
		return 1
	}
	sp.FinishWithMessage("✓")

	if opts.verbose {
		if len(res.ToolsUsed) > 0 {
			fmt.Fprintf(os.Stderr, "Tools used: %s\n", strings.Join(res.ToolsUsed, ", "))
		}
		if res.Aborted {
			fmt.Fprintln(os.Stderr, "Iteration limit reached, using best-effort answer")
		}
	}

	fmt.Println(res.Command)
	return 0
}

func refreshTools(ctx context.Context) int {
	fmt.Fprintln(os.Stderr, "Refreshing tool discovery cache...")
	cache := discover.Discover(ctx)
	if err := discover.SaveCache(cache); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "✓ Cache refreshed successfully")
	fmt.Fprintf(os.Stderr, "  Discovered %d tools\n", len(cache.Tools))
	return 0
}

func printConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Default model: %s\n", cfg.DefaultModel)
	fmt.Fprintf(out, "  Config path: %s\n", config.Path())
	if p := registry.ModelPath(cfg.DefaultModel); fsutil.FileExists(p) {
		fmt.Fprintf(out, "  Model path: %s\n", p)
	} else {
		fmt.Fprintln(out, "  Model path: (not downloaded)")
	}

	fmt.Fprintf(out, "  Cache path: %s\n", discover.CachePath())
	cache, err := discover.LoadCache()
	if err != nil {
		fmt.Fprintln(out, "  Cached tools: (cache not initialized)")
		return
	}
	fmt.Fprintf(out, "  Cached tools: %d\n", len(cache.Tools))
	if age, err := cache.Age(); err == nil {
		fmt.Fprintf(out, "  Cache age: %d hours\n", int(age.Hours()))
		if cache.NeedsRefresh() {
			fmt.Fprintln(out, "  Cache status: stale (needs refresh)")
		} else {
			fmt.Fprintln(out, "  Cache status: fresh")
		}
	}
}
