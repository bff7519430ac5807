// Command enginectl is the solve pipeline's CLI front door: load a
// product group's frame, run a single solve or Monte Carlo scenario
// batch against it, or inspect a WAL directory (verify its hash chain,
// replay it into a fresh audit index). It is the operator-facing
// front door a web or mobile UI would otherwise wrap.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"tradedesk/internal/audit"
	"tradedesk/internal/config"
	"tradedesk/internal/frame"
	"tradedesk/internal/logger"
	"tradedesk/internal/lpcore"
	"tradedesk/internal/montecarlo"
	"tradedesk/internal/numfmt"
	"tradedesk/internal/wal"
)

var version = "dev"

func main() {
	logger.Banner(version)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "solve":
		err = runSolve(args)
	case "montecarlo":
		err = runMonteCarlo(args)
	case "verify":
		err = runVerify(args)
	case "replay":
		err = runReplay(args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("enginectl", err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: enginectl <solve|montecarlo|verify|replay> [flags]")
}

func loadFrame(path, productGroup string) (*frame.Registry, error) {
	reg, err := frame.Load(path)
	if err != nil {
		return nil, err
	}
	if productGroup != "" && reg.ProductGroup != productGroup {
		logger.Warn("frame", fmt.Sprintf("loaded product group %q differs from requested %q", reg.ProductGroup, productGroup))
	}
	return reg, nil
}

func runSolve(args []string) error {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	framePath := fs.String("frame", "", "path to the product group's YAML frame definition")
	productGroup := fs.String("product-group", "", "expected product group name (warns on mismatch)")
	varsJSON := fs.String("vars", "", "JSON array overriding the frame's default variable vector")
	fs.Parse(args)

	if *framePath == "" {
		return fmt.Errorf("solve: -frame is required")
	}
	reg, err := loadFrame(*framePath, *productGroup)
	if err != nil {
		return err
	}

	vars := reg.DefaultVector()
	if *varsJSON != "" {
		if err := json.Unmarshal([]byte(*varsJSON), &vars); err != nil {
			return fmt.Errorf("solve: parse -vars: %w", err)
		}
	}

	logger.Section("LP Core solve")
	res, err := lpcore.Solve(&reg.Descriptor, vars)
	if err != nil {
		return err
	}
	printSolveResult(res)
	return nil
}

func printSolveResult(res *lpcore.Result) {
	logger.Stats("status", res.Status)
	logger.Stats("profit", numfmt.Money(res.Profit))
	logger.Stats("tons", numfmt.Tons(res.Tons))
	logger.Stats("cost", numfmt.Money(res.Cost))
	logger.Stats("roi", numfmt.Percent(res.ROI))

	if len(res.RouteTons) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Tons", "Margin", "Profit")
	for i := range res.RouteTons {
		table.Append(
			fmt.Sprintf("%d", i+1),
			numfmt.Tons(res.RouteTons[i]),
			numfmt.Money(res.Margins[i]),
			numfmt.Money(res.RouteProfits[i]),
		)
	}
	table.Render()
}

func runMonteCarlo(args []string) error {
	fs := flag.NewFlagSet("montecarlo", flag.ExitOnError)
	framePath := fs.String("frame", "", "path to the product group's YAML frame definition")
	scenarios := fs.Int("scenarios", 0, "scenario count (defaults to TRADEDESK_DEFAULT_SCENARIO_COUNT)")
	varsJSON := fs.String("vars", "", "JSON array overriding the frame's default center vector")
	fs.Parse(args)

	if *framePath == "" {
		return fmt.Errorf("montecarlo: -frame is required")
	}
	reg, err := loadFrame(*framePath, "")
	if err != nil {
		return err
	}

	center := reg.DefaultVector()
	if *varsJSON != "" {
		if err := json.Unmarshal([]byte(*varsJSON), &center); err != nil {
			return fmt.Errorf("montecarlo: parse -vars: %w", err)
		}
	}

	n := *scenarios
	if n <= 0 {
		n = config.Load().DefaultScenarioCount
	}

	logger.Section("Monte Carlo run")
	res, err := montecarlo.Run(&reg.Descriptor, center, n, reg.Thresholds)
	if err != nil {
		return err
	}

	logger.Stats("scenarios", res.NScenarios)
	logger.Stats("feasible", res.NFeasible)
	logger.Stats("infeasible", res.NInfeasible)
	logger.Stats("signal", res.Signal)
	logger.Stats("mean", numfmt.Money(res.Mean))
	logger.Stats("p5/p25/p50/p75/p95", fmt.Sprintf("%s / %s / %s / %s / %s",
		numfmt.Money(res.P5), numfmt.Money(res.P25), numfmt.Money(res.P50), numfmt.Money(res.P75), numfmt.Money(res.P95)))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("variable", "symbol", "sensitivity")
	for i, v := range reg.Variables {
		table.Append(fmt.Sprintf("%d", i), v.Symbol, numfmt.Float(res.Sensitivity[i], 4))
	}
	table.Render()
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	path := fs.String("file", "", "path to one WAL file (<type>_<YYYYMMDD>.wal)")
	fs.Parse(args)

	if *path == "" {
		return fmt.Errorf("verify: -file is required")
	}

	ok, broken, err := wal.VerifyChain(*path)
	if err != nil {
		return err
	}
	if ok {
		logger.Success("verify", fmt.Sprintf("%s: hash chain intact", *path))
		return nil
	}
	logger.Warn("verify", fmt.Sprintf("%s: chain broken at seq %d (expected %x, got %x)",
		*path, broken.Seq, broken.Expected, broken.Got))
	return nil
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	dir := fs.String("dir", "", "WAL directory to replay")
	typesFlag := fs.String("types", "audit", "comma-separated record types to replay")
	fs.Parse(args)

	if *dir == "" {
		return fmt.Errorf("replay: -dir is required")
	}

	idx := audit.New()
	applier := func(rec wal.Record) error {
		if rec.Type != "audit" {
			return nil
		}
		var a audit.Audit
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			return err
		}
		idx.Insert(a)
		return nil
	}

	if err := wal.Replay(*dir, time.Time{}, time.Now(), splitCSV(*typesFlag), applier); err != nil {
		return err
	}

	recent := idx.Recent(20)
	logger.Section("Replayed audits")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("id", "mode", "product_group", "status", "signal", "created_at")
	for _, a := range recent {
		table.Append(a.ID, a.Mode, a.ProductGroup, a.ResultStatus, a.Signal, a.CreatedAt.Format(time.RFC3339))
	}
	table.Render()
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
