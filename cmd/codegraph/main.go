// Command codegraph is the engine's primary CLI: init/index/query/search/
// stats/cache/projects/remove/clean subcommands over urfave/cli/v2,
// grounded on cmd/lci/main.go's App/Command/Flag wiring (that repo's
// nearest analogue to this engine's command surface).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/codegraph/codegraph/internal/cache"
	"github.com/codegraph/codegraph/internal/config"
	"github.com/codegraph/codegraph/internal/errkind"
	"github.com/codegraph/codegraph/internal/ignore"
	"github.com/codegraph/codegraph/internal/index"
	"github.com/codegraph/codegraph/internal/langprovider"
	"github.com/codegraph/codegraph/internal/pipeline"
	"github.com/codegraph/codegraph/internal/query"
	"github.com/codegraph/codegraph/internal/store"
)

var version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "codegraph",
		Usage:   "Persistent, queryable source code graph indexer",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to codegraph.toml"},
			&cli.StringFlag{Name: "db", Usage: "Database DSN (overrides config)"},
			&cli.BoolFlag{Name: "json", Usage: "Print structured output as JSON"},
		},
		Commands: []*cli.Command{
			initCommand(),
			indexCommand(),
			queryCommand(),
			searchCommand(),
			statsCommand(),
			cacheCommand(),
			removeCommand(),
			projectsCommand(),
			cleanCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "codegraph: %v\n", err)
		os.Exit(errkind.ExitCode(err))
	}
}

func newLogger() *zap.SugaredLogger {
	l, _ := zap.NewProduction()
	return l.Sugar()
}

func loadEngineConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if dsn := c.String("db"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(store.ConnectOptions{DSN: cfg.DatabaseDSN, PureGo: cfg.PureGoSQLite})
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a codegraph database at the configured DSN",
		Action: func(c *cli.Context) error {
			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.DB()
			fmt.Printf("initialized database at %s\n", cfg.DatabaseDSN)
			return nil
		},
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Index a project directory into the code graph",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "Logical project key (defaults to the indexed path)"},
			&cli.IntFlag{Name: "workers", Usage: "Worker pool size (0 = auto)"},
			&cli.BoolFlag{Name: "no-gitignore", Usage: "Ignore .gitignore rules"},
			&cli.StringSliceFlag{Name: "custom-ignore", Usage: "Additional glob ignore patterns"},
		},
		Action: func(c *cli.Context) error {
			root := c.Args().First()
			if root == "" {
				return errkind.New(errkind.InvalidPath, "usage: codegraph index <path>")
			}

			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			projectPath := c.String("project")
			if projectPath == "" {
				projectPath = root
			}

			log := newLogger()
			defer log.Sync()

			s, err := openStore(cfg)
			if err != nil {
				return err
			}

			mem, err := cache.New(cache.Options{MaxBytes: cfg.CacheMaxBytes, TTL: cfg.CacheTTL, Disk: s})
			if err != nil {
				return err
			}

			var gitignoreLines []string
			if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
				gitignoreLines = strings.Split(string(data), "\n")
			}
			ignoreOpts := ignore.Options{
				Custom:         c.StringSlice("custom-ignore"),
				NoGitignore:    cfg.NoGitignore || c.Bool("no-gitignore"),
				GitignoreLines: gitignoreLines,
			}
			ig, err := ignore.New(ignoreOpts)
			if err != nil {
				return err
			}

			reg := langprovider.NewRegistry()
			if err := langprovider.RegisterDefaults(reg); err != nil {
				return err
			}

			workers := c.Int("workers")
			if workers == 0 {
				workers = cfg.Workers
			}

			ctx := context.Background()
			log.Infow("starting index run", "root", root, "project", projectPath)

			assembled, summary, err := index.Run(ctx, index.Options{
				Root:         root,
				ProjectPath:  projectPath,
				Registry:     reg,
				Ignore:       ig,
				Cache:        mem,
				Workers:      workers,
				ParseTimeout: cfg.ParseTimeout,
				Progress:     cliProgressSink{log: log},
			})
			if err != nil {
				return err
			}

			rootAbs, err := filepath.Abs(root)
			if err != nil {
				rootAbs = root
			}
			if err := pipeline.Persist(ctx, s, projectPath, rootAbs, assembled); err != nil {
				return err
			}

			fmt.Printf("indexed %d files (%d failed, %d cached), %d nodes, %d edges, in %s\n",
				summary.FilesParsed, summary.FilesFailed, summary.FilesCached,
				summary.NodesWritten, summary.EdgesWritten, summary.Duration)
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Query the indexed graph",
		Subcommands: []*cli.Command{
			{
				Name:  "important",
				Usage: "List the most important nodes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Required: true},
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.StringFlag{Name: "path-prefix"},
					&cli.StringFlag{Name: "type", Usage: "Restrict results to one node kind"},
					&cli.Float64Flag{Name: "min-score", Usage: "Minimum importance score"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadEngineConfig(c)
					if err != nil {
						return err
					}
					s, err := openStore(cfg)
					if err != nil {
						return err
					}
					surface := query.New(s, cfg.QueryCacheTTL)
					nodes, err := surface.Important(context.Background(), c.String("project"), c.Int("limit"), c.String("path-prefix"), c.String("type"), c.Float64("min-score"))
					if err != nil {
						return err
					}
					return printNodes(c, nodes)
				},
			},
			{
				Name:  "related",
				Usage: "List nodes directly connected to a node id",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "node", Required: true},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadEngineConfig(c)
					if err != nil {
						return err
					}
					s, err := openStore(cfg)
					if err != nil {
						return err
					}
					surface := query.New(s, cfg.QueryCacheTTL)
					nodes, err := surface.Related(context.Background(), c.Int64("node"), c.Int("limit"))
					if err != nil {
						return err
					}
					return printNodes(c, nodes)
				},
			},
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over the indexed graph",
		ArgsUsage: "<terms...>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Required: true},
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "mode", Value: "any", Usage: "Token match mode: any or all"},
			&cli.StringFlag{Name: "type", Usage: "Restrict results to one node kind"},
			&cli.BoolFlag{Name: "use-fts", Value: true, Usage: "Use the FTS index when available"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" {
				return errkind.New(errkind.InvalidPath, "usage: codegraph search --project <name> <terms...>")
			}
			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			surface := query.New(s, cfg.QueryCacheTTL)
			nodes, err := surface.Search(context.Background(), c.String("project"), text, c.String("mode"), c.String("type"), c.Int("limit"), c.Bool("use-fts"))
			if err != nil {
				return err
			}
			return printNodes(c, nodes)
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show node/edge counts for a project",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			surface := query.New(s, cfg.QueryCacheTTL)
			stats, err := surface.Stats(context.Background(), c.String("project"))
			if err != nil {
				return err
			}
			return printStats(c, stats)
		},
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clean the file content cache",
		Subcommands: []*cli.Command{
			{
				Name:  "clean",
				Usage: "Evict expired cache entries",
				Action: func(c *cli.Context) error {
					cfg, err := loadEngineConfig(c)
					if err != nil {
						return err
					}
					s, err := openStore(cfg)
					if err != nil {
						return err
					}
					mem, err := cache.New(cache.Options{MaxBytes: cfg.CacheMaxBytes, TTL: cfg.CacheTTL, Disk: s})
					if err != nil {
						return err
					}
					n, err := mem.CleanupExpired(context.Background())
					if err != nil {
						return err
					}
					fmt.Printf("evicted %d expired cache entries\n", n)
					return nil
				},
			},
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove a project's graph from the database",
		ArgsUsage: "<project>",
		Action: func(c *cli.Context) error {
			project := c.Args().First()
			if project == "" {
				return errkind.New(errkind.InvalidPath, "usage: codegraph remove <project>")
			}
			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			if err := s.RemoveProject(context.Background(), project); err != nil {
				return err
			}
			fmt.Printf("removed project %q\n", project)
			return nil
		},
	}
}

func projectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "List projects recorded in the database",
		Action: func(c *cli.Context) error {
			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			projects, err := s.ListProjects(context.Background())
			if err != nil {
				return err
			}
			return printProjects(c, projects)
		},
	}
}

func cleanCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Remove registered projects whose root path no longer exists on disk",
		Action: func(c *cli.Context) error {
			cfg, err := loadEngineConfig(c)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			ctx := context.Background()
			projects, err := s.ListProjects(ctx)
			if err != nil {
				return err
			}
			var removed int
			for _, p := range projects {
				if _, err := os.Stat(p.RootPath); err == nil {
					continue
				}
				if err := s.RemoveProject(ctx, p.ProjectPath); err != nil {
					return err
				}
				fmt.Printf("cleaned stale project %q (root %s no longer exists)\n", p.ProjectPath, p.RootPath)
				removed++
			}
			if removed == 0 {
				fmt.Println("nothing to clean")
			}
			return nil
		},
	}
}

func printProjects(c *cli.Context, projects []store.ProjectRecord) error {
	if c.Bool("json") {
		data, err := json.MarshalIndent(projects, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(renderProjectTable(projects))
	return nil
}

func printNodes(c *cli.Context, nodes []store.NodeRecord) error {
	if c.Bool("json") {
		data, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(renderNodeTable(nodes))
	return nil
}

func printStats(c *cli.Context, stats *store.Stats) error {
	if c.Bool("json") {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(renderStats(stats))
	return nil
}

// cliProgressSink adapts internal/index.ProgressSink to structured logging.
type cliProgressSink struct {
	log *zap.SugaredLogger
}

func (s cliProgressSink) OnFileStart(path string) {}

func (s cliProgressSink) OnFileDone(path string, nodeCount int, err error) {
	if err != nil {
		s.log.Warnw("parse failed", "path", path, "error", err)
	}
}

func (s cliProgressSink) OnComplete(summary index.Summary) {
	s.log.Infow("index run complete",
		"walked", summary.FilesWalked,
		"parsed", summary.FilesParsed,
		"failed", summary.FilesFailed,
		"skipped", summary.FilesSkipped,
		"duration", summary.Duration.Round(time.Millisecond))
}
