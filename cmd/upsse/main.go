package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"upsse/internal"
	"upsse/internal/config"
	"upsse/internal/pipeline"
	"upsse/internal/refdata"
	"upsse/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "ledger:generate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "sales workbook (.xlsx)")
		store := fs.String("store", "", "store name as configured")
		source := fs.String("source", "pos", "pos|hddt")
		date := fs.String("date", "", "confirmed batch date dd/mm/yyyy")
		boundary := fs.String("boundary", "", "first invoice number of the new price period")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *store == "" {
			must(fmt.Errorf("--input and --store are required"))
		}

		ctx := loadContext(cfg)
		svc := pipeline.NewProcessingService(db, cfg, ctx)

		req := pipeline.GenerateRequest{
			InputPath:       *input,
			Store:           *store,
			Source:          sourceKind(*source),
			BoundaryInvoice: *boundary,
		}
		if *date != "" {
			confirmed, err := time.Parse("02/01/2006", *date)
			must(err)
			req.ConfirmedDate = &confirmed
		}

		res, err := svc.GenerateLedger(req)
		must(err)
		if res.ChoiceNeeded {
			fmt.Println("the batch date is ambiguous; rerun with --date set to one of:")
			for _, opt := range res.DateChoices {
				fmt.Printf("  %s\n", opt.Display)
			}
			os.Exit(2)
		}
		for _, w := range res.Warnings {
			fmt.Printf("warning: row %d %s: %s\n", w.Row, w.Field, w.Message)
		}
		fmt.Printf("generated %d rows run=%s\n", res.Rows, res.RunID)
		for _, p := range res.OutputPaths {
			fmt.Printf("  %s\n", p)
		}
	case "reconcile":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		logPath := fs.String("log", "", "pump log workbook (.xlsx)")
		ledgerPath := fs.String("ledger", "", "e-invoice registry workbook (.xlsx)")
		store := fs.String("store", "", "store name as configured")
		_ = fs.Parse(os.Args[2:])
		if *logPath == "" || *ledgerPath == "" {
			must(fmt.Errorf("--log and --ledger are required"))
		}

		ctx := loadContext(cfg)
		svc := pipeline.NewProcessingService(db, cfg, ctx)
		result, reportPath, err := svc.ReconcileWorkbooks(*logPath, *ledgerPath, *store)
		must(err)

		status := "BALANCED"
		if !result.Balanced {
			status = "DISCREPANCIES FOUND"
		}
		fmt.Printf("%s: log=%d ledger=%d matched=%d missing=%d orphaned=%d duplicates=%d mismatches=%d\n",
			status, result.LogCount, result.LedgerCount, len(result.MatchedKeys),
			len(result.MissingKeys), len(result.OrphanedKeys), len(result.DuplicateKeys), len(result.Mismatches))
		fmt.Printf("report: %s\n", reportPath)
	case "stockcard:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "OCR extraction output (.json)")
		store := fs.String("store", "", "store name as configured")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *store == "" || *out == "" {
			must(fmt.Errorf("--input, --store and --out are required"))
		}

		sources, err := readSlipSources(*input)
		must(err)
		slips, warnings, err := pipeline.CollectStockCards(sources, *store)
		must(err)
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w.Message)
		}
		must(pipeline.ExportStockCards(slips, *out))
		fmt.Printf("exported %d stock cards to %s\n", len(slips), *out)
	case "stores:list":
		ctx := loadContext(cfg)
		for _, name := range ctx.StoreNames() {
			store, _ := ctx.Store(name)
			fmt.Printf("%s\twarehouse=%s\tregion=%s\tseries=%s\n",
				store.Name, store.WarehouseCode, store.Region, store.InvoiceSeries)
		}
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		showWarnings := fs.Bool("warnings", false, "print each run's warnings")
		_ = fs.Parse(os.Args[2:])

		runs, err := db.ListRuns(*limit)
		must(err)
		for _, run := range runs {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\t%s\n",
				run.CreatedAt, run.ID, run.Kind, run.Store, run.BatchDate, countsSummary(run.Counts))
			if *showWarnings {
				warnings, err := db.GetWarnings(run.ID)
				must(err)
				for _, w := range warnings {
					fmt.Printf("  row %d %s: %s\n", w.Row, w.Field, w.Message)
				}
			}
		}
	default:
		usage()
		os.Exit(1)
	}
}

func loadContext(cfg config.Config) *refdata.Context {
	ctx, err := refdata.Load(cfg.RefDataPath)
	must(err)
	return ctx
}

func sourceKind(s string) internal.SourceKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hddt", "einvoice":
		return internal.SourceEInvoice
	case "log":
		return internal.SourcePumpLog
	default:
		return internal.SourcePOS
	}
}

func readSlipSources(path string) ([]pipeline.SlipSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var maps []map[string]any
	if err := json.Unmarshal(raw, &maps); err != nil {
		return nil, err
	}
	sources := make([]pipeline.SlipSource, 0, len(maps))
	for i, m := range maps {
		sources = append(sources, pipeline.SlipSource{
			Origin: fmt.Sprintf("%s[%d]", path, i),
			Fields: m,
		})
	}
	return sources, nil
}

func countsSummary(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func usage() {
	fmt.Println("usage: upsse <command>")
	fmt.Println("commands:")
	fmt.Println("  ledger:generate --input=sales.xlsx --store=... [--source=pos|hddt] [--date=dd/mm/yyyy] [--boundary=INV]")
	fmt.Println("  reconcile --log=log.xlsx --ledger=hddt.xlsx [--store=...]")
	fmt.Println("  stockcard:export --input=slips.json --store=... --out=thekho.xlsx")
	fmt.Println("  stores:list")
	fmt.Println("  runs:list [--limit=20] [--warnings]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
