package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/fx-backoffice/internal/aggregator"
	"github.com/dvloznov/fx-backoffice/internal/config"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/editor"
	"github.com/dvloznov/fx-backoffice/internal/infra"
	"github.com/dvloznov/fx-backoffice/internal/jobs"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/notionexport"
	"github.com/dvloznov/fx-backoffice/internal/report"
	"github.com/dvloznov/fx-backoffice/internal/reportexport"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "report":
		runReport(cfg, log)
	case "backups":
		runBackups(cfg, log)
	case "restore":
		runRestore(cfg, log)
	case "export":
		runExport(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FX Back-office CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  report    Print a customer or company report")
	fmt.Println("  backups   List recent backups of a customer")
	fmt.Println("  restore   Restore a customer from one of its backups")
	fmt.Println("  export    Build a report and ship it to GCS and/or Notion")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// filterFlags registers the report filter flags on fs.
type filterFlags struct {
	from, to, currency, account, typ *string
	lenient                          *bool
}

func addFilterFlags(fs *flag.FlagSet) filterFlags {
	return filterFlags{
		from:     fs.String("from", "", "Start date (YYYY-MM-DD)"),
		to:       fs.String("to", "", "End date (YYYY-MM-DD)"),
		currency: fs.String("currency", "", "Currency filter"),
		account:  fs.String("account", "", "Account filter"),
		typ:      fs.String("type", "", "Type filter: entry, exit, buy, sell_to, transfer"),
		lenient:  fs.Bool("lenient", false, "Let rows without a category match (default for company reports)"),
	}
}

func (ff filterFlags) filter(customerID string) (aggregator.Filter, error) {
	if !aggregator.ValidType(*ff.typ) {
		return aggregator.Filter{}, fmt.Errorf("invalid -type %q", *ff.typ)
	}
	f := aggregator.Filter{
		Currency:        *ff.currency,
		Account:         *ff.account,
		Type:            *ff.typ,
		LenientCategory: *ff.lenient || customerID == "",
	}
	for _, p := range []struct {
		raw string
		dst **civil.Date
	}{{*ff.from, &f.DateFrom}, {*ff.to, &f.DateTo}} {
		if p.raw == "" {
			continue
		}
		d, err := civil.ParseDate(p.raw)
		if err != nil {
			return aggregator.Filter{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", p.raw)
		}
		*p.dst = &d
	}
	return f, aggregator.ValidateRange(f.DateFrom, f.DateTo)
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) store.Store {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	st, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	return st
}

func newAggregator(cfg config.Config) *aggregator.Aggregator {
	var opts []aggregator.Option
	if cfg.InverseCurrency != "" {
		opts = append(opts, aggregator.WithInverseCurrency(cfg.InverseCurrency))
	}
	if loc, err := cfg.Location(); err == nil {
		opts = append(opts, aggregator.WithLocation(loc))
	}
	return aggregator.New(opts...)
}

func buildReport(ctx context.Context, reports *report.Service, customerID string, f aggregator.Filter) (*report.Report, error) {
	if customerID != "" {
		return reports.Customer(ctx, customerID, f)
	}
	return reports.Company(ctx, f)
}

func runReport(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	customerID := fs.String("customer-id", "", "Customer ID (omit for the company report)")
	asJSON := fs.Bool("json", false, "Print the full report as JSON")
	ff := addFilterFlags(fs)
	fs.Parse(os.Args[2:])

	f, err := ff.filter(*customerID)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st := openStore(ctx, cfg, log)
	defer st.Close()

	rep, err := buildReport(ctx, report.New(st, st, st, newAggregator(cfg), report.WithLocalCurrencyLabel(cfg.LocalCurrencyLabel)), *customerID, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build report")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode report")
		}
		return
	}

	fmt.Printf("\n=== Report: %s ===\n", rep.Scope())
	fmt.Printf("Transactions: %d\n", len(rep.Result.Transactions))
	for _, t := range []domain.TransactionType{domain.TypeEntry, domain.TypeExit, domain.TypeBuy, domain.TypeSellTo} {
		fmt.Printf("  %-8s %d\n", t, rep.Result.Counts[t])
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\nCurrency\tDeposits\tWithdrawals\tNet\t")
	for _, line := range notionexport.Lines(rep) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", line.Currency, line.Deposits.StringFixed(2), line.Withdrawals.StringFixed(2), line.Net.StringFixed(2))
	}
	w.Flush()

	if rep.WeightedBuyRate != nil {
		fmt.Printf("\nWeighted buy rate:  %s\n", rep.WeightedBuyRate.StringFixed(4))
	}
	if rep.WeightedSellRate != nil {
		fmt.Printf("Weighted sell rate: %s\n", rep.WeightedSellRate.StringFixed(4))
	}
	fmt.Println()
}

func runBackups(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	customerID := fs.String("customer-id", "", "Customer ID")
	days := fs.Int("days", cfg.BackupWindowDays, "How many days back to look")
	fs.Parse(os.Args[2:])

	if *customerID == "" {
		log.Fatal().Msg("Error: --customer-id is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	st := openStore(ctx, cfg, log)
	defer st.Close()

	backups, err := editor.New(st, st).ListRecentBackups(ctx, *customerID, *days)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list backups")
	}

	fmt.Printf("\n=== Backups of %s (last %d days): %d ===\n", *customerID, *days, len(backups))
	for i, b := range backups {
		by := b.ChangedBy
		if b.ChangedByEmail != nil {
			by = *b.ChangedByEmail
		}
		fmt.Printf("\n%d. %s\n", i+1, b.ID)
		fmt.Printf("   When:    %s\n", b.CreatedAt.Format(time.RFC3339))
		fmt.Printf("   By:      %s\n", by)
		fmt.Printf("   Reason:  %s\n", b.Reason)
		fmt.Printf("   Name:    %s -> %s\n", b.OldData.Name, b.NewData.Name)
		fmt.Printf("   Status:  %s -> %s\n", b.OldData.Status, b.NewData.Status)
	}
	fmt.Println()
}

func runRestore(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	customerID := fs.String("customer-id", "", "Customer ID")
	backupID := fs.String("backup-id", "", "Backup ID to restore")
	actorID := fs.String("actor", os.Getenv("USER"), "Operator id recorded in the audit trail")
	actorEmail := fs.String("actor-email", "", "Operator email recorded in the audit trail")
	days := fs.Int("days", cfg.BackupWindowDays, "How many days back to search for the backup")
	fs.Parse(os.Args[2:])

	if *customerID == "" || *backupID == "" {
		log.Fatal().Msg("Usage: cli restore -customer-id ID -backup-id ID")
	}
	if strings.TrimSpace(*actorID) == "" {
		log.Fatal().Msg("Error: --actor is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	st := openStore(ctx, cfg, log)
	defer st.Close()

	ed := editor.New(st, st)
	backups, err := ed.ListRecentBackups(ctx, *customerID, *days)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list backups")
	}
	var chosen *domain.CustomerBackup
	for i := range backups {
		if backups[i].ID == *backupID {
			chosen = &backups[i]
			break
		}
	}
	if chosen == nil {
		log.Fatal().Str("backup_id", *backupID).Msg("Backup not found")
	}

	current, err := st.GetCustomer(ctx, *customerID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load customer")
	}

	restored, err := ed.RestoreFromBackup(ctx, *customerID, *current, *chosen, domain.Actor{ID: *actorID, Email: *actorEmail})
	if err != nil {
		log.Fatal().Err(err).Msg("Restore failed")
	}

	fmt.Printf("Restored %s to backup %s (name %q, status %s).\n", restored.ID, chosen.ID, restored.Name, restored.Status)
}

func runExport(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	customerID := fs.String("customer-id", "", "Customer ID (omit for the company report)")
	dest := fs.String("dest", "gcs", "Comma-separated destinations: gcs, notion")
	ff := addFilterFlags(fs)
	fs.Parse(os.Args[2:])

	f, err := ff.filter(*customerID)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter")
	}

	var destinations []jobs.Destination
	for _, d := range strings.Split(*dest, ",") {
		if d = strings.TrimSpace(d); d != "" {
			destinations = append(destinations, jobs.Destination(d))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st := openStore(ctx, cfg, log)
	defer st.Close()

	var uploader reportexport.Uploader
	if cfg.ExportBucket != "" {
		gcs, err := reportexport.NewGCSUploader(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer gcs.Close()
		uploader = gcs
	}
	var notion notionexport.NotionService
	if cfg.NotionToken != "" {
		notion = notionexport.NewNotionClient(cfg.NotionToken)
	}

	runner := reportexport.NewRunner(report.New(st, st, st, newAggregator(cfg), report.WithLocalCurrencyLabel(cfg.LocalCurrencyLabel)), uploader, cfg.ExportBucket, notion, cfg.NotionReportsDB)

	job := &jobs.Export{
		JobID:        uuid.New().String(),
		CustomerID:   *customerID,
		Filter:       f,
		Destinations: destinations,
		RequestedBy:  os.Getenv("USER"),
		CreatedAt:    time.Now(),
	}
	if err := runner.Handle(ctx, job); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	if job.GCSURI != "" {
		fmt.Printf("Uploaded report to %s\n", job.GCSURI)
	}
	if len(job.NotionPageIDs) > 0 {
		fmt.Printf("Published %d Notion page(s)\n", len(job.NotionPageIDs))
	}
}
