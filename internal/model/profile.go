package model

// ChatRole identifies the author of a conversation turn.
type ChatRole string

// Chat role constants.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the onboarding conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// InputKind is the dialogue oracle's declaration of which structured UI
// affordance should be shown next.
type InputKind string

// Next-expected-input constants.
const (
	InputGeneralConversation InputKind = "general_conversation"
	InputGeneralObjectives   InputKind = "general_objectives_selection"
	InputSpecificObjectives  InputKind = "specific_objectives_selection"
	InputStatementUpload     InputKind = "expense_income_upload"
	InputSummaryDisplay      InputKind = "summary_display"
)

// Valid reports whether k is one of the known affordances.
func (k InputKind) Valid() bool {
	switch k {
	case InputGeneralConversation, InputGeneralObjectives,
		InputSpecificObjectives, InputStatementUpload, InputSummaryDisplay:
		return true
	}
	return false
}

// UserProfile is the accumulated onboarding state for one session. It is
// mutated only by the conversation state machine; every consumer treats a
// profile value as an immutable snapshot.
type UserProfile struct {
	Name                  string           `json:"name,omitempty"`
	GeneralObjectives     []string         `json:"generalObjectives,omitempty"`
	SpecificObjectives    []string         `json:"specificObjectives,omitempty"`
	ExpensesIncomeSummary *EnhancedSummary `json:"expensesIncomeSummary,omitempty"`
	Roadmap               *Roadmap         `json:"roadmap,omitempty"`
}

// Clone returns a deep copy so transitions can build a replacement
// profile without aliasing the snapshot handed to consumers.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.GeneralObjectives = append([]string(nil), p.GeneralObjectives...)
	out.SpecificObjectives = append([]string(nil), p.SpecificObjectives...)
	if p.ExpensesIncomeSummary != nil {
		summary := *p.ExpensesIncomeSummary
		summary.CategorizedIncomeItems = append([]CategorizedItem(nil), p.ExpensesIncomeSummary.CategorizedIncomeItems...)
		summary.CategorizedExpenseItems = append([]CategorizedItem(nil), p.ExpensesIncomeSummary.CategorizedExpenseItems...)
		summary.Original.IncomeByProvider = append([]ProviderSummary(nil), p.ExpensesIncomeSummary.Original.IncomeByProvider...)
		summary.Original.ExpensesByProvider = append([]ProviderSummary(nil), p.ExpensesIncomeSummary.Original.ExpensesByProvider...)
		out.ExpensesIncomeSummary = &summary
	}
	if p.Roadmap != nil {
		roadmap := *p.Roadmap
		roadmap.Steps = append([]RoadmapStep(nil), p.Roadmap.Steps...)
		out.Roadmap = &roadmap
	}
	return out
}

// HasGeneralObjectives reports whether at least one general objective has
// been recorded. The specific-objectives affordance is gated on this.
func (p UserProfile) HasGeneralObjectives() bool {
	return len(p.GeneralObjectives) > 0
}
