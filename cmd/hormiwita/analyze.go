package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/borjamrd/hormiwita/internal/aggregate"
	"github.com/borjamrd/hormiwita/internal/categorize"
	"github.com/borjamrd/hormiwita/internal/cli"
	"github.com/borjamrd/hormiwita/internal/config"
	"github.com/borjamrd/hormiwita/internal/forecast"
	"github.com/borjamrd/hormiwita/internal/ingest"
	"github.com/borjamrd/hormiwita/internal/llm"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <statement-file>",
		Short: "Analyze a bank statement from the command line",
		Long: `Decode a CSV or OFX statement, aggregate it by provider, categorize
income and expenses, and print the savings scenarios and the 12-month
cumulative forecast.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Bool("forecast", true, "print the 12-month cumulative forecast")
	_ = viper.BindPFlag("analyze.forecast", cmd.Flags().Lookup("forecast"))

	return cmd
}

// statementDataURI reads a statement file into the data URI form the
// ingest boundary expects, inferring the MIME type from the extension.
func statementDataURI(path string) (uri, name string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	mime := ingest.MIMECSV
	if strings.EqualFold(filepath.Ext(path), ".ofx") {
		mime = ingest.MIMEOFX
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), filepath.Base(path), nil
}

func newOracleSet(ctx context.Context) (*llm.OracleSet, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	oracles, err := llm.NewOraclesForProvider(ctx, llm.Config{
		Provider:       cfg.Oracle.Provider,
		Model:          cfg.Oracle.Model,
		APIKey:         cfg.Oracle.APIKey,
		MaxRetries:     cfg.Oracle.MaxRetries,
		RateLimit:      cfg.Oracle.RateLimit,
		Temperature:    cfg.Oracle.Temperature,
		TextStatements: cfg.Oracle.TextStatements,
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to set up oracles: %w", err)
	}
	return oracles, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dataURI, name, err := statementDataURI(args[0])
	if err != nil {
		return err
	}

	analyzer := aggregate.NewAnalyzer(slog.Default())
	summary, err := analyzer.Analyze(ctx, dataURI, name)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Statement analysis"))
	fmt.Printf("Status:   %s\n", summary.Status)
	fmt.Printf("Feedback: %s\n", summary.Feedback)
	if !summary.Status.AllowsCategorization() {
		return nil
	}
	fmt.Printf("Income:   %.2f (%d providers)\n", summary.TotalIncome, len(summary.IncomeByProvider))
	fmt.Printf("Expenses: %.2f (%d providers)\n", summary.TotalExpenses, len(summary.ExpensesByProvider))
	if summary.DetectedCurrency != "" {
		fmt.Printf("Currency: %s\n", summary.DetectedCurrency)
	}
	if summary.UnassignedTransactions > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d rows could not be interpreted", summary.UnassignedTransactions)))
	}

	oracles, err := newOracleSet(ctx)
	if err != nil {
		return err
	}
	defer oracles.Close()

	orchestrator := categorize.NewOrchestrator(oracles.Classify, slog.Default())

	incomeItems, incomeDegraded := orchestrator.Categorize(ctx, summary.IncomeByProvider,
		service.ItemTypeIncome, categorize.DefaultIncomeCategories, categorize.DefaultLanguage)
	expenseItems, expenseDegraded := orchestrator.Categorize(ctx, summary.ExpensesByProvider,
		service.ItemTypeExpense, categorize.DefaultExpenseCategories, categorize.DefaultLanguage)
	if incomeDegraded || expenseDegraded {
		fmt.Println(cli.FormatWarning("some categories fell back to defaults (oracle unavailable or incomplete)"))
	}

	fmt.Println(cli.FormatTitle("Categorized providers"))
	bar := progressbar.Default(int64(len(incomeItems) + len(expenseItems)))
	printItems := func(kind string, items []model.CategorizedItem) {
		for _, item := range items {
			_ = bar.Add(1)
			fmt.Printf("  [%s] %-30s %10.2f x%d  %s\n",
				kind, item.ProviderName, item.TotalAmount, item.TransactionCount, item.SuggestedCategory)
		}
	}
	printItems("income", incomeItems)
	printItems("expense", expenseItems)

	scenario := forecast.CalculateMonthlySavings(expenseItems)
	fmt.Println(cli.FormatTitle("Monthly savings scenarios"))
	fmt.Printf("  simple:   %8.2f  (%d cuts)\n", scenario.Simple, len(scenario.SimpleDetails))
	fmt.Printf("  moderate: %8.2f  (%d cuts)\n", scenario.Moderate, len(scenario.ModerateDetails))
	fmt.Printf("  max:      %8.2f  (%d cuts)\n", scenario.Max, len(scenario.MaxDetails))

	if viper.GetBool("analyze.forecast") {
		profile := model.UserProfile{
			ExpensesIncomeSummary: &model.EnhancedSummary{
				Original:                *summary,
				CategorizedIncomeItems:  incomeItems,
				CategorizedExpenseItems: expenseItems,
			},
		}
		points := forecast.GenerateForecastData(profile, time.Now())

		fmt.Println(cli.FormatTitle("12-month cumulative forecast"))
		for _, p := range points {
			fmt.Printf("  %-9s simple %6d  moderate %6d  max %6d\n",
				p.Month, p.AhorroSimple, p.AhorroModerado, p.AhorroMaximo)
		}
	}

	return nil
}
