// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// StatementStatus indicates the terminal outcome of analyzing one uploaded statement.
type StatementStatus string

// Statement analysis status constants.
const (
	StatementSuccess         StatementStatus = "Success"
	StatementPartialData     StatementStatus = "PartialData"
	StatementErrorParsing    StatementStatus = "ErrorParsing"
	StatementNoData          StatementStatus = "NoDataIdentified"
	StatementUnsupportedType StatementStatus = "UnsupportedFileType"
)

// AllowsCategorization reports whether a statement with this status may
// proceed to provider categorization.
func (s StatementStatus) AllowsCategorization() bool {
	return s == StatementSuccess || s == StatementPartialData
}

// ProviderSummary aggregates all transactions of a single counterparty.
// TotalAmount is always positive; whether it is income or expense is
// carried by the list the summary belongs to, never by the sign.
type ProviderSummary struct {
	ProviderName     string  `json:"providerName"`
	TotalAmount      float64 `json:"totalAmount"`
	TransactionCount int     `json:"transactionCount"`
}

// Validate ensures the summary honors the aggregation contract.
func (p *ProviderSummary) Validate() error {
	if strings.TrimSpace(p.ProviderName) == "" {
		return fmt.Errorf("provider name is required")
	}
	if p.TotalAmount <= 0 {
		return fmt.Errorf("total amount must be positive, got %.2f", p.TotalAmount)
	}
	if p.TransactionCount < 1 {
		return fmt.Errorf("transaction count must be at least 1, got %d", p.TransactionCount)
	}
	return nil
}

// CategorizedItem is a provider summary with a category label attached.
// Only the categorization orchestrator (or its fallback path) creates
// these; they are immutable afterwards within a session.
type CategorizedItem struct {
	ProviderSummary
	SuggestedCategory string `json:"suggestedCategory"`
}

// Validate ensures the item carries a usable category label.
func (c *CategorizedItem) Validate() error {
	if err := c.ProviderSummary.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.SuggestedCategory) == "" {
		return fmt.Errorf("suggested category is required")
	}
	return nil
}

// StatementSummary is the outcome of ingesting and analyzing one uploaded
// bank statement. Status is terminal and gates categorization.
type StatementSummary struct {
	Status                 StatementStatus   `json:"status"`
	Feedback               string            `json:"feedback"`
	TotalIncome            float64           `json:"totalIncome,omitempty"`
	TotalExpenses          float64           `json:"totalExpenses,omitempty"`
	DetectedCurrency       string            `json:"detectedCurrency,omitempty"`
	IncomeByProvider       []ProviderSummary `json:"incomeByProvider,omitempty"`
	ExpensesByProvider     []ProviderSummary `json:"expensesByProvider,omitempty"`
	UnassignedTransactions int               `json:"unassignedTransactions,omitempty"`
}

// EnhancedSummary pairs the original statement analysis with the
// categorized provider lists the user confirmed. It replaces any prior
// value on the profile wholesale; there is no partial merge.
type EnhancedSummary struct {
	Original                StatementSummary  `json:"originalSummary"`
	CategorizedIncomeItems  []CategorizedItem `json:"categorizedIncomeItems"`
	CategorizedExpenseItems []CategorizedItem `json:"categorizedExpenseItems"`
}
