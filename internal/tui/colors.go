package tui

// Color constants for the wroklog timer theme
const (
	ColorBorder = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Labels, values, titles
	ColorSecondaryText = "#B1B8C7" // Purple-tinted grey
	ColorDisabledText  = "#6D7383" // Muted text
	ColorHelpText      = "240"     // Dark grey for help text

	// Accent Colors (Purple theme)
	ColorAccentMain   = "#7C3AED" // Logo, accent elements
	ColorAccentBright = "#A78BFA" // Clock, highlights

	// State Colors
	ColorError   = "#EF4444" // Rejected stop
	ColorSuccess = "#22C55E" // Stop allowed
	ColorWarning = "#F59E0B" // Auto-stop pending
)
