package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vanshika/comptree/backend/internal/analytics"
	"github.com/vanshika/comptree/backend/internal/config"
	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/earnings"
	"github.com/vanshika/comptree/backend/internal/export"
	"github.com/vanshika/comptree/backend/internal/generator"
	"github.com/vanshika/comptree/backend/internal/tree"
)

func main() {
	var (
		datasetPath = flag.String("dataset", "data/"+generator.DatasetFile, "path to a network dataset")
		policyPath  = flag.String("policy", "", "YAML policy file (built-in plan when empty)")
		format      = flag.String("format", "csv", "output format: csv or json")
		precision   = flag.Int("precision", 2, "decimal places for amounts, -1 for full precision")
		activeOnly  = flag.Bool("active-only", false, "only include active members")
		minLevel    = flag.Int("min-level", 0, "lowest level to include")
		maxLevel    = flag.Int("max-level", 0, "deepest level to include")
		tier        = flag.String("tier", "", "only include members holding this package tier")
	)
	flag.Parse()

	if err := run(os.Stdout, *datasetPath, *policyPath, *format, *precision, domain.Predicate{
		ActiveOnly: *activeOnly,
		MinLevel:   *minLevel,
		MaxLevel:   *maxLevel,
		Tier:       *tier,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, datasetPath, policyPath, format string, precision int, filter domain.Predicate) error {
	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		return err
	}
	dataset, err := generator.ReadDataset(datasetPath)
	if err != nil {
		return err
	}

	edges := make([]domain.Edge, 0, len(dataset.Members))
	records := make([]domain.MemberRecord, 0, len(dataset.Members))
	for _, m := range dataset.Members {
		edges = append(edges, m.Edge())
		records = append(records, m.ToRecord())
	}

	built, err := tree.Build(edges, tree.FromRecords(records))
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	calc, err := earnings.NewCalculator(policy.Rewards)
	if err != nil {
		return err
	}
	annotated, err := calc.Annotate(built)
	if err != nil {
		return fmt.Errorf("annotate network: %w", err)
	}

	summary := analytics.Aggregate(tree.Filter(annotated, filter))
	doc := export.Summary(summary)
	opts := export.Options{Precision: precision}
	if precision < 0 {
		opts.Precision = export.FullPrecision
	}

	switch format {
	case "csv":
		return export.WriteCSV(w, doc, opts)
	case "json":
		return export.WriteJSON(w, doc, opts)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
