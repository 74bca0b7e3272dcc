package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/borjamrd/hormiwita/internal/aggregate"
	"github.com/borjamrd/hormiwita/internal/categorize"
	"github.com/borjamrd/hormiwita/internal/cli"
	"github.com/borjamrd/hormiwita/internal/forecast"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

func forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <statement-file>",
		Short: "Project 12 months of cumulative savings from a statement",
		Long: `Analyze a CSV or OFX statement and print the three savings scenarios
with their 12-month cumulative projection, without the per-provider
detail the analyze command shows.`,
		Args: cobra.ExactArgs(1),
		RunE: runForecast,
	}
}

func runForecast(cmd *cobra.Command, args []string) error {
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
	if !summary.Status.AllowsCategorization() {
		fmt.Println(cli.FormatWarning(summary.Feedback))
		return fmt.Errorf("statement not usable for forecasting (status %s)", summary.Status)
	}

	oracles, err := newOracleSet(ctx)
	if err != nil {
		return err
	}
	defer oracles.Close()

	orchestrator := categorize.NewOrchestrator(oracles.Classify, slog.Default())
	expenseItems, degraded := orchestrator.Categorize(ctx, summary.ExpensesByProvider,
		service.ItemTypeExpense, categorize.DefaultExpenseCategories, categorize.DefaultLanguage)
	if degraded {
		fmt.Println(cli.FormatWarning("some categories fell back to defaults (oracle unavailable or incomplete)"))
	}

	scenario := forecast.CalculateMonthlySavings(expenseItems)
	fmt.Println(cli.FormatTitle("Monthly savings scenarios"))
	fmt.Printf("  simple:   %8.2f  (%d cuts)\n", scenario.Simple, len(scenario.SimpleDetails))
	fmt.Printf("  moderate: %8.2f  (%d cuts)\n", scenario.Moderate, len(scenario.ModerateDetails))
	fmt.Printf("  max:      %8.2f  (%d cuts)\n", scenario.Max, len(scenario.MaxDetails))

	profile := model.UserProfile{
		ExpensesIncomeSummary: &model.EnhancedSummary{
			Original:                *summary,
			CategorizedExpenseItems: expenseItems,
		},
	}
	points := forecast.GenerateForecastData(profile, time.Now())

	fmt.Println(cli.FormatTitle("12-month cumulative forecast"))
	for _, p := range points {
		fmt.Printf("  %-9s simple %6d  moderate %6d  max %6d\n",
			p.Month, p.AhorroSimple, p.AhorroModerado, p.AhorroMaximo)
	}
	return nil
}
