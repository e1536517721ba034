// Package cli implements kbctl, the offline analysis tool. It runs the same
// analytics as the API against a local badger database or a JSON dataset.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"kbgraph/internal/domain/services"
	"kbgraph/internal/repository"
	"kbgraph/internal/repository/badgerstore"
	"kbgraph/internal/repository/memory"
	"kbgraph/internal/service/analytics"
	"kbgraph/internal/service/category"
	"kbgraph/pkg/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	DB      string `help:"Badger database directory" default:"./data/kbgraph" type:"path" env:"KBGRAPH_DB"`
	Dataset string `help:"Analyze a JSON dataset in memory instead of the database" type:"existingfile"`
	User    string `short:"u" help:"User whose knowledge base is analyzed" default:"demo" env:"KBGRAPH_USER"`
	JSON    bool   `help:"Print raw JSON"`
	Verbose bool   `short:"v" help:"Enable verbose output"`

	out io.Writer
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	Import   ImportCmd   `cmd:"" help:"Load a JSON dataset into the database"`
	Graph    GraphCmd    `cmd:"" help:"Summarize the knowledge graph"`
	Similar  SimilarCmd  `cmd:"" help:"List documents sharing tags with a document"`
	Central  CentralCmd  `cmd:"" help:"Rank the most-tagged documents"`
	Density  DensityCmd  `cmd:"" help:"Report tagging density"`
	Clusters ClustersCmd `cmd:"" help:"Count documents per category"`
	Gaps     GapsCmd     `cmd:"" help:"Report categories without documents"`
	Path     PathCmd     `cmd:"" help:"Print the chronological learning path"`
	Tags     TagsCmd     `cmd:"" help:"Print the tag cloud"`
	Trends   TrendsCmd   `cmd:"" help:"Count documents created per month"`
	Tree     TreeCmd     `cmd:"" help:"Print the category tree"`
	Move     MoveCmd     `cmd:"" help:"Move a category under another, or to the root"`
	Delete   DeleteCmd   `cmd:"" help:"Delete an empty category"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses args and runs the selected command, writing to out.
func (c *CLI) Execute(args []string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	c.out = out

	parser, err := kong.New(c,
		kong.Name("kbctl"),
		kong.Description("Knowledge-graph analytics over a local record store"),
		kong.UsageOnError(),
		kong.Writers(out, os.Stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": Version},
		kong.Bind(&c.Globals),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}

// app is one opened store with the services on top of it.
type app struct {
	store      repository.Store
	analytics  *analytics.Service
	categories *category.Service
}

func (g *Globals) logger() *zap.Logger {
	if !g.Verbose {
		return zap.NewNop()
	}
	l, err := logger.New("development", "debug")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (g *Globals) openStore(ctx context.Context, log *zap.Logger) (repository.Store, error) {
	if g.Dataset == "" {
		store, err := badgerstore.Open(badgerstore.Options{Path: g.DB}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	f, err := os.Open(g.Dataset)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := repository.ReadDataset(f)
	if err != nil {
		return nil, err
	}
	store := memory.NewStore()
	if _, err := repository.Import(ctx, store, ds); err != nil {
		return nil, err
	}
	return store, nil
}

func (g *Globals) open(ctx context.Context) (*app, error) {
	log := g.logger()
	store, err := g.openStore(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	suggester := services.NewStaticSuggester(nil)
	svc := analytics.NewService(
		store,
		analytics.NewSnapshotLoader(store, analytics.DefaultLoaderConcurrency, nil, log),
		services.NewGraphBuilder(log),
		services.NewSimilarityEngine(nil, 0, log),
		services.NewGapAnalyzer(suggester),
		nil,
		analytics.Config{},
		log,
	)
	return &app{
		store:      store,
		analytics:  svc,
		categories: category.NewService(store, services.NewCategoryTreeBuilder(log), nil, log),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// run opens the store, runs fn and closes the store again.
func (g *Globals) run(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (g *Globals) printJSON(v interface{}) error {
	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	dim     = color.New(color.Faint)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
)
