package cli

// FormatTitle renders a section title.
func FormatTitle(text string) string {
	return TitleStyle.Render(text)
}

// FormatSuccess renders a success message.
func FormatSuccess(text string) string {
	return SuccessStyle.Render(text)
}

// FormatWarning renders a warning message.
func FormatWarning(text string) string {
	return WarningStyle.Render(text)
}

// FormatError renders an error message.
func FormatError(text string) string {
	return ErrorStyle.Render(text)
}

// FormatSubtle renders de-emphasized text.
func FormatSubtle(text string) string {
	return SubtleStyle.Render(text)
}
