package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/comptree/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		maxLevel     = flag.Int("levels", cfg.MaxLevel, "deepest level to generate, root is level 1")
		rootChildren = flag.Int("root-children", cfg.RootChildren, "members introduced directly by the root")
		maxChildren  = flag.Int("max-children", cfg.MaxChildren, "maximum members any other member introduces")
		maxMembers   = flag.Int("members", cfg.MaxMembers, "stop once this many members exist")
		activeChance = flag.Float64("active-chance", cfg.ActiveChance, "probability that a member is active")
		rootID       = flag.String("root-id", "", "identifier of the root member (random when empty)")
		hexIDs       = flag.Bool("hex-ids", cfg.HexIDs, "generate wallet style 0x identifiers")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write network.json")
		writeStdout  = flag.Bool("stdout", false, "write dataset to stdout instead of a file")
	)
	flag.Parse()

	genCfg := cfg
	genCfg.MaxLevel = *maxLevel
	genCfg.RootChildren = *rootChildren
	genCfg.MaxChildren = *maxChildren
	genCfg.MaxMembers = *maxMembers
	genCfg.ActiveChance = clampProbability(*activeChance)
	genCfg.RootID = *rootID
	genCfg.HexIDs = *hexIDs
	genCfg.Seed = *seed

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WriteDataset(dataset, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d members under root %s into %s\n", len(dataset.Members), dataset.RootID, path)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
