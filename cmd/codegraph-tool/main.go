// Command codegraph-tool runs the MCP tool-call bridge over stdio, so an
// AI assistant can query an already-indexed project without shelling out to
// the primary CLI for every lookup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codegraph/codegraph/internal/cache"
	"github.com/codegraph/codegraph/internal/config"
	"github.com/codegraph/codegraph/internal/ignore"
	"github.com/codegraph/codegraph/internal/index"
	"github.com/codegraph/codegraph/internal/langprovider"
	"github.com/codegraph/codegraph/internal/pipeline"
	"github.com/codegraph/codegraph/internal/query"
	"github.com/codegraph/codegraph/internal/store"
	"github.com/codegraph/codegraph/internal/toolhost"
)

var version = "0.1.0"

func main() {
	var (
		configPath  string
		projectRoot string
		projectName string
	)

	root := &cobra.Command{
		Use:     "codegraph-tool",
		Short:   "Serve codegraph query operations over the Model Context Protocol",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, projectRoot, projectName)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "Path to codegraph.toml")
	root.Flags().StringVar(&projectRoot, "root", ".", "Project directory this server answers queries about")
	root.Flags().StringVar(&projectName, "project", "", "Logical project key (defaults to --root)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "codegraph-tool: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, configPath, projectRoot, projectName string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if projectName == "" {
		projectName = projectRoot
	}

	s, err := store.Open(store.ConnectOptions{DSN: cfg.DatabaseDSN, PureGo: cfg.PureGoSQLite})
	if err != nil {
		return err
	}

	surface := query.New(s, cfg.QueryCacheTTL)

	mem, err := cache.New(cache.Options{MaxBytes: cfg.CacheMaxBytes, TTL: cfg.CacheTTL, Disk: s})
	if err != nil {
		return err
	}

	reg := langprovider.NewRegistry()
	if err := langprovider.RegisterDefaults(reg); err != nil {
		return err
	}

	indexFn := func(ctx context.Context) (index.Summary, error) {
		ig, err := ignore.New(ignore.Options{NoGitignore: cfg.NoGitignore, Custom: cfg.CustomIgnore})
		if err != nil {
			return index.Summary{}, err
		}
		assembled, summary, err := index.Run(ctx, index.Options{
			Root:         projectRoot,
			ProjectPath:  projectName,
			Registry:     reg,
			Ignore:       ig,
			Cache:        mem,
			Workers:      cfg.Workers,
			ParseTimeout: cfg.ParseTimeout,
			Progress:     index.NoopSink{},
		})
		if err != nil {
			return summary, err
		}
		rootAbs, err := filepath.Abs(projectRoot)
		if err != nil {
			rootAbs = projectRoot
		}
		return summary, pipeline.Persist(ctx, s, projectName, rootAbs, assembled)
	}

	host := toolhost.New("codegraph", version, projectName, surface, indexFn)
	return host.Serve(ctx)
}
