package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/animeshkundu/fix/internal/discover"
)

func newToolsCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show the discovered local command inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := discover.LoadOrCreate()
			if refresh || cache.NeedsRefresh() {
				fmt.Fprintln(os.Stderr, "Discovering tools...")
				cache = discover.Discover(cmd.Context())
				if err := discover.SaveCache(cache); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to save tools cache: %v\n", err)
				}
			}
			listTools(os.Stdout, cache)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Rescan PATH instead of using the cache")
	return cmd
}

func listTools(out io.Writer, cache *discover.Cache) {
	if len(cache.Tools) == 0 {
		fmt.Fprintln(out, "No commands discovered.")
		return
	}

	names := make([]string, 0, len(cache.Tools))
	width := 0
	for name := range cache.Tools {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Discovered commands (%d):\n", len(names))
	for _, name := range names {
		info := cache.Tools[name]
		if info.Desc == "" {
			fmt.Fprintf(out, "  %s\n", name)
			continue
		}
		fmt.Fprintf(out, "  %-*s  %s\n", width, name, info.Desc)
	}
}
