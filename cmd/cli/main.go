package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/classifier"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/export"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/notionsync"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	commands := map[string]func(ctx context.Context, a *app.App, args []string) error{
		"categories":  runCategories,
		"add":         runAdd,
		"list":        runList,
		"delete":      runDelete,
		"summary":     runSummary,
		"budget-add":  runBudgetAdd,
		"budgets":     runBudgets,
		"suggest":     runSuggest,
		"export":      runExport,
		"sync-notion": runSyncNotion,
	}

	name := os.Args[1]
	switch name {
	case "help", "-h", "--help":
		printUsage()
		return
	}
	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	err = run(ctx, a, os.Args[2:])
	if cerr := a.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close application")
	}
	if err != nil {
		log.Error().Err(err).Str("command", name).Msg("Command failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  categories   List the category catalog")
	fmt.Println("  add          Record a transaction")
	fmt.Println("  list         List transactions")
	fmt.Println("  delete       Delete a transaction by ID")
	fmt.Println("  summary      Show totals and per-category breakdown")
	fmt.Println("  budget-add   Define a budget")
	fmt.Println("  budgets      Show budgets with their progress")
	fmt.Println("  suggest      Ask the model to categorize a description")
	fmt.Println("  export       Export the ledger to every configured sink")
	fmt.Println("  sync-notion  Mirror the ledger into a Notion database")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nThe CLI works against DATA_BACKEND; with the memory backend nothing")
	fmt.Println("outlives the process. Run 'cli <command> -h' for command options.")
}

// newFlagSet returns a flag set with the shared --user flag.
func newFlagSet(name string, a *app.App) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	user := fs.String("user", a.Config.DefaultUserID, "User ID the command acts for")
	return fs, user
}

// parseDate accepts YYYY-MM-DD. An empty value yields nil.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
}

// endOfDay moves a date-only upper bound to the last instant of its day.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end
}

// resolveCategory accepts a category id or display name. An empty value
// yields nil.
func resolveCategory(reg *categories.Registry, value string) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if c, ok := reg.Get(value); ok {
		return &c.ID, nil
	}
	if c, ok := reg.Resolve(value); ok {
		return &c.ID, nil
	}
	return nil, fmt.Errorf("unknown category %q", value)
}

func formatTransaction(svc *ledger.Service, tx domain.Transaction) string {
	category := svc.CategoryName(tx)
	if category == "" {
		category = "-"
	}
	return fmt.Sprintf("%s  %s  %10s  %-7s  %-16s  %s",
		tx.ID, tx.Date.Format("2006-01-02"), tx.Signed().StringFixed(2), tx.Type, category, tx.Description)
}

func runCategories(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	typ := fs.String("type", "", "Only categories accepting this type (income|expense)")
	fs.Parse(args)

	list := a.Registry.All()
	if *typ != "" {
		t, ok := domain.ParseTransactionType(*typ)
		if !ok {
			return fmt.Errorf("invalid --type %q", *typ)
		}
		list = a.Registry.CategoriesFor(t)
	}

	for _, c := range list {
		types := make([]string, len(c.AllowedTypes))
		for i, t := range c.AllowedTypes {
			types[i] = string(t)
		}
		fmt.Printf("%-16s  %-18s  %s\n", c.ID, c.Name, strings.Join(types, ","))
	}
	fmt.Printf("\n%d categories\n", len(list))
	return nil
}

func runAdd(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("add", a)
	amount := fs.String("amount", "", "Positive amount with at most 2 decimals (required)")
	typ := fs.String("type", "expense", "income or expense")
	desc := fs.String("description", "", "Description (required)")
	category := fs.String("category", "", "Category ID or name")
	date := fs.String("date", "", "Date in YYYY-MM-DD format (defaults to today)")
	notes := fs.String("notes", "", "Free-form notes")
	fs.Parse(args)

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q", *amount)
	}
	day, err := parseDate(*date)
	if err != nil {
		return err
	}
	categoryID, err := resolveCategory(a.Registry, *category)
	if err != nil {
		return err
	}

	svc := a.Ledger.ForUser(*user)
	in := ledger.CreateInput{
		Amount:      amt,
		Type:        domain.TransactionType(*typ),
		Description: *desc,
		CategoryID:  categoryID,
		Notes:       *notes,
	}
	if day != nil {
		in.Date = *day
	} else {
		in.Date = svc.Now().UTC().Truncate(24 * time.Hour)
	}

	tx, err := svc.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Println(formatTransaction(svc, tx))
	return nil
}

func runList(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("list", a)
	query := fs.String("q", "", "Search description and category name")
	typ := fs.String("type", "", "income or expense")
	category := fs.String("category", "", "Category ID or name")
	start := fs.String("start-date", "", "Start date in YYYY-MM-DD format")
	end := fs.String("end-date", "", "End date in YYYY-MM-DD format (inclusive)")
	skip := fs.Int("skip", 0, "Number of transactions to skip")
	limit := fs.Int("limit", 100, "Maximum number of transactions")
	fs.Parse(args)

	from, err := parseDate(*start)
	if err != nil {
		return err
	}
	to, err := parseDate(*end)
	if err != nil {
		return err
	}
	categoryID, err := resolveCategory(a.Registry, *category)
	if err != nil {
		return err
	}

	filter := ledger.ListFilter{
		Query:  *query,
		Type:   domain.TransactionType(strings.ToLower(*typ)),
		From:   from,
		To:     endOfDay(to),
		Offset: *skip,
		Limit:  *limit,
	}
	if categoryID != nil {
		filter.CategoryID = *categoryID
	}

	svc := a.Ledger.ForUser(*user)
	txs, err := svc.List(ctx, filter)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		fmt.Println(formatTransaction(svc, tx))
	}
	fmt.Printf("\n%d transactions\n", len(txs))
	return nil
}

func runDelete(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("delete", a)
	id := fs.String("id", "", "Transaction ID (required)")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	if err := a.Ledger.ForUser(*user).Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", *id)
	return nil
}

func runSummary(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("summary", a)
	month := fs.Bool("month", false, "Restrict to the current calendar month")
	start := fs.String("start-date", "", "Start date in YYYY-MM-DD format")
	end := fs.String("end-date", "", "End date in YYYY-MM-DD format (inclusive)")
	recent := fs.Int("recent", 0, "Number of recent transactions to show")
	fs.Parse(args)

	svc := a.Ledger.ForUser(*user)
	opts := ledger.SummaryOptions{RecentLimit: *recent}
	if *month {
		from, to := ledger.MonthWindow(svc.Now())
		opts.From, opts.To = &from, &to
	} else {
		from, err := parseDate(*start)
		if err != nil {
			return err
		}
		to, err := parseDate(*end)
		if err != nil {
			return err
		}
		opts.From, opts.To = from, endOfDay(to)
	}

	summary, err := svc.Summarize(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Income:   %12s\n", summary.TotalIncome.StringFixed(2))
	fmt.Printf("Expenses: %12s\n", summary.TotalExpenses.StringFixed(2))
	fmt.Printf("Net:      %12s\n", summary.NetAmount.StringFixed(2))

	fmt.Println("\n=== By category ===")
	for _, cs := range summary.CategorySummaries {
		fmt.Printf("%-7s  %-18s  %10s  (%d)\n", cs.TransactionType, cs.CategoryName, cs.TotalAmount.StringFixed(2), cs.TransactionCount)
	}

	if len(summary.RecentTransactions) > 0 {
		fmt.Println("\n=== Recent ===")
		for _, tx := range summary.RecentTransactions {
			fmt.Println(formatTransaction(svc, tx))
		}
	}
	fmt.Println()
	return nil
}

func runBudgetAdd(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("budget-add", a)
	name := fs.String("name", "", "Budget name (required)")
	amount := fs.String("amount", "", "Spending ceiling (required)")
	period := fs.String("period", "monthly", "weekly, monthly or yearly")
	category := fs.String("category", "", "Expense category ID or name (all categories when empty)")
	start := fs.String("start-date", "", "Start date in YYYY-MM-DD format (defaults to the first of this month)")
	end := fs.String("end-date", "", "End date in YYYY-MM-DD format (derived from the period when empty)")
	fs.Parse(args)

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q", *amount)
	}
	categoryID, err := resolveCategory(a.Registry, *category)
	if err != nil {
		return err
	}

	svc := a.Ledger.ForUser(*user)
	in := ledger.BudgetInput{
		Name:       *name,
		Amount:     amt,
		Period:     domain.BudgetPeriod(*period),
		CategoryID: categoryID,
	}
	if *start == "" {
		from, _ := ledger.MonthWindow(svc.Now())
		in.StartDate = civil.DateOf(from)
	} else if in.StartDate, err = civil.ParseDate(*start); err != nil {
		return fmt.Errorf("invalid --start-date %q", *start)
	}
	if *end != "" {
		d, err := civil.ParseDate(*end)
		if err != nil {
			return fmt.Errorf("invalid --end-date %q", *end)
		}
		in.EndDate = &d
	}

	b, err := svc.CreateBudget(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("Created budget %s: %s %s %s..%s\n", b.ID, b.Name, b.Amount.StringFixed(2), b.StartDate, b.EndDate)
	return nil
}

func runBudgets(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("budgets", a)
	activeOnly := fs.Bool("active-only", false, "Only show active budgets")
	fs.Parse(args)

	svc := a.Ledger.ForUser(*user)
	budgets, err := svc.ListBudgets(ctx, *activeOnly)
	if err != nil {
		return err
	}

	now := svc.Now()
	for _, b := range budgets {
		p, err := svc.Progress(ctx, b, now)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-20s  %10s / %10s  %6.1f%%  %3d days left  %s\n",
			b.ID, b.Name, p.Spent.StringFixed(2), b.Amount.StringFixed(2), p.Percentage, p.DaysRemaining, p.Severity)
	}
	fmt.Printf("\n%d budgets\n", len(budgets))
	return nil
}

func runSuggest(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	desc := fs.String("description", "", "Transaction description (required)")
	amount := fs.String("amount", "", "Amount, if known")
	date := fs.String("date", "", "Date in YYYY-MM-DD format, if known")
	fs.Parse(args)

	if a.Classifier == nil {
		return fmt.Errorf("AI suggestions are disabled; set GEMINI_API_KEY")
	}

	req := classifier.Request{Description: *desc}
	if *amount != "" {
		amt, err := decimal.NewFromString(*amount)
		if err != nil {
			return fmt.Errorf("invalid --amount %q", *amount)
		}
		req.Amount = &amt
	}
	day, err := parseDate(*date)
	if err != nil {
		return err
	}
	req.Date = day

	s, err := a.Classifier.Categorize(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Category:   %s", s.SuggestedCategory)
	if s.CategoryID == nil {
		fmt.Print(" (not in catalog)")
	}
	fmt.Println()
	fmt.Printf("Type:       %s\n", s.Type)
	fmt.Printf("Confidence: %.2f\n", s.Confidence)
	if s.ExtractedAmount != nil {
		fmt.Printf("Amount:     %s\n", s.ExtractedAmount.StringFixed(2))
	}
	if s.ExtractedDate != nil {
		fmt.Printf("Date:       %s\n", s.ExtractedDate.Format("2006-01-02"))
	}
	return nil
}

func runExport(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("export", a)
	fs.Parse(args)

	job := &jobs.ExportJob{JobID: "cli", UserID: *user}
	err := a.RunExport(ctx, job)
	printSinkResults(job.Results)
	return err
}

func printSinkResults(results []export.SinkResult) {
	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("%-10s  FAILED  %s\n", r.Sink, r.Error)
			continue
		}
		fmt.Printf("%-10s  ok      %s (%s)\n", r.Sink, r.Detail, r.Duration.Round(time.Millisecond))
	}
}

func runSyncNotion(ctx context.Context, a *app.App, args []string) error {
	fs, user := newFlagSet("sync-notion", a)
	token := fs.String("notion-token", a.Config.NotionToken, "Notion API token")
	dbID := fs.String("notion-db-id", a.Config.NotionDatabaseID, "Notion database ID")
	start := fs.String("start-date", "", "Only mirror transactions from this date (YYYY-MM-DD)")
	end := fs.String("end-date", "", "Only mirror transactions up to this date (YYYY-MM-DD)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(args)

	if *token == "" || *dbID == "" {
		return fmt.Errorf("--notion-token and --notion-db-id are required")
	}

	from, err := parseDate(*start)
	if err != nil {
		return err
	}
	to, err := parseDate(*end)
	if err != nil {
		return err
	}

	svc := a.Ledger.ForUser(*user)
	txs, err := svc.List(ctx, ledger.ListFilter{From: from, To: endOfDay(to)})
	if err != nil {
		return err
	}

	client := a.Notion
	if client == nil || *token != a.Config.NotionToken {
		client = notionsync.NewNotionClient(*token)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("user_id", *user).Int("transactions", len(txs)).Bool("dry_run", *dryRun).Msg("Starting Notion sync")

	res, err := notionsync.MirrorTransactions(ctx, client, *dbID, *user, txs, svc.CategoryName, *dryRun)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d, archived %d, unchanged %d, failed %d\n", res.Created, res.Archived, res.Skipped, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d Notion operations failed", res.Failed)
	}
	return nil
}
