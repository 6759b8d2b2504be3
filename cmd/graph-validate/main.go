// Package main is the graph health validator: a
// scripts-friendly CLI that runs engine/validate.CheckGraphHealth against
// the live graph and exits 0/1/2 for healthy/warn/critical, for use as a
// CI gate or operator diagnostic.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/validate"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(int(validate.ExitCritical))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	driver, err := neo4j.NewDriverWithContext(cfg.Graph.URI, neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""))
	if err != nil {
		fmt.Fprintln(os.Stderr, "neo4j driver:", err)
		os.Exit(int(validate.ExitCritical))
	}
	defer driver.Close(ctx)

	store := graph.New(driver)
	report, err := validate.CheckGraphHealth(ctx, store, validate.DefaultGraphHealthThresholds)
	if err != nil {
		fmt.Fprintln(os.Stderr, "graph health check failed:", err)
		os.Exit(int(validate.ExitCritical))
	}

	fmt.Printf("relationship_density=%.3f (ok=%v)\n", report.RelationshipDensity, report.DensityOK)
	fmt.Printf("tree_coverage=%.3f (ok=%v)\n", report.TreeCoverage, report.CoverageOK)
	fmt.Printf("orphan_count=%d (ok=%v)\n", report.OrphanCount, report.OrphansOK)
	fmt.Printf("relationship_types_ok=%v", report.RelationshipTypesOK)
	if len(report.MissingRelTypes) > 0 {
		fmt.Printf(" missing=%v", report.MissingRelTypes)
	}
	fmt.Println()
	fmt.Printf("exit=%d\n", report.Exit)

	os.Exit(int(report.Exit))
}
