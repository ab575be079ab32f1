package tui

import "github.com/charmbracelet/lipgloss"

// Theme colors - "Indigo & Slate" palette
var (
	PrimaryColor   = lipgloss.Color("#6366F1") // Indigo 500
	SecondaryColor = lipgloss.Color("#0EA5E9") // Sky 500
	AccentColor    = lipgloss.Color("#F59E0B") // Amber 500
	SuccessColor   = lipgloss.Color("#10B981") // Emerald 500
	ErrorColor     = lipgloss.Color("#EF4444") // Red 500
	MutedColor     = lipgloss.Color("#64748B") // Slate 500

	BgBase   = lipgloss.Color("#0F172A") // Slate 900
	BgDark   = lipgloss.Color("#1E293B") // Slate 800
	BgDarker = lipgloss.Color("#020617") // Slate 950

	TextPrimary   = lipgloss.Color("#F8FAFC") // Slate 50
	TextSecondary = lipgloss.Color("#94A3B8") // Slate 400
	TextMuted     = lipgloss.Color("#475569") // Slate 600
)

// Header and status bar
var (
	HeaderTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(TextPrimary).
				Background(PrimaryColor).
				Padding(0, 2)

	HeaderFlowStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Background(BgDark).
			Padding(0, 1)

	HeaderBarStyle = lipgloss.NewStyle().
			Background(BgDark)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(BgDark).
			Padding(0, 1)

	StatusNoteStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Italic(true)

	BadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			MarginRight(1)

	IdleBadgeStyle = BadgeStyle.
			Background(TextMuted).
			Foreground(TextPrimary)

	BusyBadgeStyle = BadgeStyle.
			Background(AccentColor).
			Foreground(BgDarker)

	WizardBadgeStyle = BadgeStyle.
				Background(PrimaryColor).
				Foreground(TextPrimary)
)

// Chat bubbles
var (
	UserLabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	BotLabelStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	UserBubbleStyle = lipgloss.NewStyle().
			Foreground(TextPrimary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor).
			Padding(0, 1)

	BotBubbleStyle = lipgloss.NewStyle().
			Foreground(TextPrimary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	ErrorBubbleStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ErrorColor).
				Padding(0, 1)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Faint(true)

	StreamCursorStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor)
)

// Wizard
var (
	StepCounterStyle = lipgloss.NewStyle().
				Foreground(MutedColor)

	StepTitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	StepDescriptionStyle = lipgloss.NewStyle().
				Foreground(TextSecondary)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Italic(true)

	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(TextPrimary).
			Bold(true)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	FieldErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	OptionStyle = lipgloss.NewStyle().
			Foreground(TextSecondary)

	SelectedOptionStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(BgDark).
			Padding(0, 2).
			MarginRight(1)

	ActiveButtonStyle = lipgloss.NewStyle().
				Foreground(TextPrimary).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 2).
				MarginRight(1)

	AlertBoxStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ErrorColor).
			Padding(1, 3)

	ScoreStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true)
)

// Panels, help and dividers
var (
	PanelBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2).
			Margin(1, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Underline(true)

	PanelScrollStyle = lipgloss.NewStyle().
				Foreground(MutedColor)

	PanelFooterStyle = lipgloss.NewStyle().
				Foreground(TextMuted)

	InputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(PrimaryColor).
				Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	DividerStyle = lipgloss.NewStyle().
			Foreground(BgDark)
)
