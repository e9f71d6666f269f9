package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"

	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/generator"
)

func writeTestDataset(t *testing.T) (string, generator.Dataset) {
	t.Helper()
	dataset, err := generator.New(generator.Config{MaxMembers: 60, Seed: 5, HexIDs: true}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path, err := generator.WriteDataset(dataset, t.TempDir())
	if err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path, dataset
}

func TestRunWritesCSVSummary(t *testing.T) {
	path, dataset := writeTestDataset(t)

	var out bytes.Buffer
	if err := run(&out, path, "", "csv", 2, domain.Predicate{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if rows[1][0] != "totalMembers" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if want := len(dataset.Members); rows[1][1] != strconv.Itoa(want) {
		t.Fatalf("expected %d members, got %s", want, rows[1][1])
	}
}

func TestRunFiltersAndRejectsUnknownFormat(t *testing.T) {
	path, _ := writeTestDataset(t)

	var out bytes.Buffer
	if err := run(&out, path, "", "json", -1, domain.Predicate{MaxLevel: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), `"totalMembers":1`) || !strings.Contains(out.String(), "root_only") {
		t.Fatalf("expected root-only summary, got %s", out.String())
	}

	if err := run(&out, path, "", "xml", 2, domain.Predicate{}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if err := run(&out, path+".missing", "", "csv", 2, domain.Predicate{}); err == nil {
		t.Fatalf("expected missing dataset error")
	}
}
