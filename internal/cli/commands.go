package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	"kbgraph/internal/repository/badgerstore"
	"kbgraph/pkg/api"
)

// ImportCmd loads a dataset into the badger database.
type ImportCmd struct {
	File string `arg:"" help:"JSON dataset" type:"existingfile"`
}

func (c *ImportCmd) Run(g *Globals) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	ds, err := repository.ReadDataset(f)
	if err != nil {
		return err
	}
	store, err := badgerstore.Open(badgerstore.Options{Path: g.DB}, g.logger())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	stats, err := repository.Import(context.Background(), store, ds)
	if err != nil {
		return err
	}
	if g.JSON {
		return g.printJSON(stats)
	}
	good.Fprintf(g.out, "Imported into %s\n", g.DB)
	fmt.Fprintf(g.out, "  Categories:    %d\n", stats.Categories)
	fmt.Fprintf(g.out, "  Tags:          %d\n", stats.Tags)
	fmt.Fprintf(g.out, "  Documents:     %d\n", stats.Documents)
	fmt.Fprintf(g.out, "  Associations:  %d\n", stats.Associations)
	return nil
}

// GraphCmd prints node and edge counts, or the whole graph with --json.
type GraphCmd struct {
	Documents bool `help:"Build the document relation graph instead"`
}

func (c *GraphCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		var (
			resp *api.GraphResponse
			err  error
		)
		if c.Documents {
			resp, err = a.analytics.DocumentGraph(ctx, g.User)
		} else {
			resp, err = a.analytics.KnowledgeGraph(ctx, g.User)
		}
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(resp)
		}

		nodes := map[string]int{}
		for _, n := range resp.Nodes {
			nodes[n.Kind]++
		}
		edges := map[string]int{}
		for _, e := range resp.Edges {
			edges[e.Label]++
		}
		heading.Fprintf(g.out, "Graph for %s\n", g.User)
		fmt.Fprintf(g.out, "  Nodes: %d\n", len(resp.Nodes))
		printCounts(g, nodes)
		fmt.Fprintf(g.out, "  Edges: %d\n", len(resp.Edges))
		printCounts(g, edges)
		return nil
	})
}

func printCounts(g *Globals, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(g.out, "    %-22s %d\n", k, counts[k])
	}
}

type SimilarCmd struct {
	Document string `arg:"" help:"Document id"`
	Limit    int    `short:"n" default:"5" help:"Maximum results"`
}

func (c *SimilarCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		similar, err := a.analytics.SimilarDocuments(ctx, g.User, domain.DocumentID(c.Document), c.Limit)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(similar)
		}
		if len(similar) == 0 {
			fmt.Fprintln(g.out, "No similar documents")
			return nil
		}
		heading.Fprintf(g.out, "Similar to %s\n", c.Document)
		for i, s := range similar {
			fmt.Fprintf(g.out, "%2d. %s ", i+1, s.Title)
			dim.Fprintf(g.out, "(%s, %d shared)\n", s.ID, s.SimilarityScore)
		}
		return nil
	})
}

type CentralCmd struct {
	Limit int `short:"n" default:"10" help:"Maximum results"`
}

func (c *CentralCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		central, err := a.analytics.CentralNodes(ctx, g.User, c.Limit)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(central)
		}
		heading.Fprintln(g.out, "Central documents")
		for i, n := range central {
			fmt.Fprintf(g.out, "%2d. %-40s %d tags\n", i+1, n.Title, n.ConnectionCount)
		}
		return nil
	})
}

type DensityCmd struct{}

func (c *DensityCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		density, err := a.analytics.Density(ctx, g.User)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(density)
		}
		level := warn
		if density.Level == "high" {
			level = good
		}
		fmt.Fprintf(g.out, "Density: %d ", density.Value)
		level.Fprintf(g.out, "(%s)\n", density.Level)
		return nil
	})
}

type ClustersCmd struct{}

func (c *ClustersCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		clusters, err := a.analytics.Clusters(ctx, g.User)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(clusters)
		}
		heading.Fprintf(g.out, "%d clusters\n", clusters.TotalClusters)
		for _, cl := range clusters.Clusters {
			fmt.Fprintf(g.out, "  %-30s %d\n", cl.Name, cl.Count)
		}
		return nil
	})
}

type GapsCmd struct{}

func (c *GapsCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		gaps, err := a.analytics.Gaps(ctx, g.User)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(gaps)
		}
		fmt.Fprintf(g.out, "Coverage: %d/%d (%.0f%%)\n",
			gaps.CoveredCategories, gaps.TotalCategories, gaps.CoverageRate*100)
		for _, u := range gaps.UncoveredCategories {
			warn.Fprintf(g.out, "  empty: %s\n", u.Name)
		}
		if len(gaps.SuggestedTags) > 0 {
			dim.Fprintf(g.out, "Suggested tags: %s\n", strings.Join(gaps.SuggestedTags, ", "))
		}
		return nil
	})
}

type PathCmd struct {
	Goal string `help:"Only include documents mentioning this goal"`
}

func (c *PathCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		path, err := a.analytics.LearningPath(ctx, g.User, strings.TrimSpace(c.Goal))
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(path)
		}
		heading.Fprintf(g.out, "Learning path: %d steps\n", path.TotalSteps)
		for _, n := range path.Nodes {
			line := fmt.Sprintf("%3d. %s  %s", n.Step, n.CreatedAt, n.Title)
			if n.Latest {
				good.Fprintln(g.out, line)
				continue
			}
			fmt.Fprintln(g.out, line)
		}
		return nil
	})
}

type TagsCmd struct{}

func (c *TagsCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		cloud, err := a.analytics.TagCloud(ctx, g.User)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(cloud)
		}
		for _, t := range cloud {
			fmt.Fprintf(g.out, "  %-24s %3d  ", t.Name, t.Weight)
			dim.Fprintf(g.out, "%.0fpx\n", t.FontSize)
		}
		return nil
	})
}

type TrendsCmd struct {
	Months int `short:"m" default:"6" help:"Months to report"`
}

func (c *TrendsCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		trends, err := a.analytics.Trends(ctx, g.User, c.Months)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(trends)
		}
		for _, p := range trends.Points {
			fmt.Fprintf(g.out, "  %s  %-4d %s\n", p.Month, p.Count, strings.Repeat("#", p.Count))
		}
		return nil
	})
}

type TreeCmd struct{}

func (c *TreeCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		forest, err := a.categories.Tree(ctx, g.User)
		if err != nil {
			return err
		}
		if g.JSON {
			return g.printJSON(forest)
		}
		for _, root := range forest {
			printTree(g, root, 0)
		}
		return nil
	})
}

func printTree(g *Globals, n api.CategoryNode, depth int) {
	fmt.Fprintf(g.out, "%s%s ", strings.Repeat("  ", depth), n.Name)
	dim.Fprintf(g.out, "[%s]\n", n.ID)
	for _, child := range n.Children {
		printTree(g, child, depth+1)
	}
}

type MoveCmd struct {
	Category string `arg:"" help:"Category to move"`
	Parent   string `xor:"target" required:"" help:"New parent category"`
	Root     bool   `xor:"target" required:"" help:"Move to the root level"`
}

func (c *MoveCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		var parent *domain.CategoryID
		if !c.Root {
			parent = domain.CategoryRef(domain.CategoryID(c.Parent))
		}
		if err := a.categories.MoveCategory(ctx, g.User, domain.CategoryID(c.Category), parent); err != nil {
			return err
		}
		good.Fprintf(g.out, "Moved %s\n", c.Category)
		return nil
	})
}

type DeleteCmd struct {
	Category string `arg:"" help:"Category to delete"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	return g.run(func(ctx context.Context, a *app) error {
		if err := a.categories.DeleteCategory(ctx, g.User, domain.CategoryID(c.Category)); err != nil {
			return err
		}
		good.Fprintf(g.out, "Deleted %s\n", c.Category)
		return nil
	})
}
