package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/swap-router/pkg/ui/components"
	"github.com/fd1az/swap-router/pkg/ui/theme"
)

// Phase is the current screen.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const maxErrors = 3

var startupOrder = []string{"config", "solana", "venues"}

// ErrorEntry is an error shown in the error panel.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

type connectionInfo struct {
	Connected bool
	Latency   time.Duration
}

// Model is the Bubble Tea model of the quote board.
type Model struct {
	quotes *components.QuotesComponent
	venues *components.VenuesComponent

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	phase        Phase
	welcomeStart time.Time
	startupTime  time.Time
	startupSteps map[string]string

	width      int
	quitting   bool
	paused     bool
	rounds     uint64
	latency    time.Duration
	lastUpdate time.Time
	connection map[string]connectionInfo
	errors     []ErrorEntry
}

// New creates the board in the welcome phase.
func New() Model {
	now := time.Now()
	return Model{
		quotes:       components.NewQuotesComponent(),
		venues:       components.NewVenuesComponent(),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Alert)),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupTime:  now,
		startupSteps: map[string]string{"config": "connected", "solana": "pending", "venues": "pending"},
		connection:   make(map[string]connectionInfo),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.advance()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if OnPauseToggle != nil {
				go OnPauseToggle(m.paused)
			}
		case key.Matches(msg, m.keys.Refresh):
			if OnRefresh != nil {
				go OnRefresh()
			}
		case key.Matches(msg, m.keys.Clear):
			m.errors = nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			return m, m.quotes.HandleKey(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.advance()
		}
		return m, tickCmd()

	case StartupMsg:
		m.startupSteps[msg.Step] = msg.Status
		if m.phase == PhaseStartup && m.startupDone() {
			m.phase = PhaseDashboard
		}

	case QuoteBoardMsg:
		if m.paused {
			return m, nil
		}
		m.quotes.SetRequest(msg.Pair, msg.Amount)
		m.quotes.Update(msg.Rows)
		m.latency = msg.Latency
		m.rounds++
		m.lastUpdate = time.Now()
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}

	case VenueStatsMsg:
		for _, v := range msg.Venues {
			m.venues.Update(v)
		}

	case ConnectionStatusMsg:
		m.connection[msg.Name] = connectionInfo{Connected: msg.Connected, Latency: msg.Latency}

	case ErrorMsg:
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > maxErrors {
			m.errors = m.errors[len(m.errors)-maxErrors:]
		}
	}

	return m, nil
}

// advance leaves the welcome screen. The callback runs outside Update so the
// program loop is never blocked on module startup.
func (m *Model) advance() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m Model) startupDone() bool {
	for _, step := range startupOrder {
		if s := m.startupSteps[step]; s != "connected" && s != "done" {
			return false
		}
	}
	return true
}

// Phase returns the current screen.
func (m Model) Phase() Phase {
	return m.phase
}

// Paused reports whether board updates are frozen.
func (m Model) Paused() bool {
	return m.paused
}

func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcome()
	case PhaseStartup:
		return m.renderStartup()
	}

	var b strings.Builder
	b.WriteString(theme.Banner.Render(" Solana Swap Router "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	left := m.quotes.View()
	right := m.venues.View()
	if m.width > 100 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			theme.Panel.Width(m.width*2/3-2).Render(left),
			theme.Panel.Width(m.width/3-2).Render(right)))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(theme.Panel.Width(width).Render(left))
		b.WriteString("\n")
		b.WriteString(theme.Panel.Width(width).Render(right))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(theme.Negative.Bold(true).Render("ERRORS"))
		b.WriteString(theme.Muted.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			ago := time.Since(e.Timestamp).Round(time.Second)
			b.WriteString(theme.Negative.Render("  • " + e.Message + " "))
			b.WriteString(theme.Muted.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(theme.Alert.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderWelcome() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n")
	sb.WriteString(theme.Heading.Render(`
   ███████╗██╗    ██╗ █████╗ ██████╗
   ██╔════╝██║    ██║██╔══██╗██╔══██╗
   ███████╗██║ █╗ ██║███████║██████╔╝
   ╚════██║██║███╗██║██╔══██║██╔═══╝
   ███████║╚███╔███╔╝██║  ██║██║
   ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝
`))
	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render("          R O U T E R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(theme.Positive.Render("          Initializing" + dots))
	sb.WriteString("\n\n")
	sb.WriteString(theme.Muted.Render("    Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartup() string {
	labels := map[string]string{
		"config": "Loading configuration",
		"solana": "Connecting to Solana RPC",
		"venues": "Registering venues",
	}

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(theme.Heading.Render("  Solana Swap Router"))
	sb.WriteString("\n\n  Starting up...\n\n")

	for _, step := range startupOrder {
		var icon, status string
		switch m.startupSteps[step] {
		case "connected", "done":
			icon, status = theme.Positive.Render("✓"), theme.Positive.Render("Ready")
		case "connecting":
			icon, status = m.spinner.View(), theme.Alert.Render("Connecting...")
		case "failed":
			icon, status = theme.Negative.Render("✗"), theme.Negative.Render("Failed")
		default:
			icon, status = theme.Muted.Render("○"), theme.Muted.Render("Pending")
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n", icon, theme.Muted.Render(labels[step]), status))
	}

	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Rounds: %d", m.rounds))
	if m.latency > 0 {
		parts = append(parts, fmt.Sprintf("Fan-out: %dms", m.latency.Milliseconds()))
	}
	if n := m.venues.TotalErrors(); n > 0 {
		parts = append(parts, theme.Negative.Render(fmt.Sprintf("Venue errors: %d", n)))
	}

	for name, info := range m.connection {
		if info.Connected {
			label := name
			if info.Latency > 0 {
				label = fmt.Sprintf("%s (%dms)", name, info.Latency.Milliseconds())
			}
			parts = append(parts, theme.Best.Render("● "+label))
		} else {
			parts = append(parts, theme.Negative.Bold(true).Render("○ "+name+" (down)"))
		}
	}

	if !m.lastUpdate.IsZero() {
		parts = append(parts, theme.Muted.Render(fmt.Sprintf("Updated: %s ago", time.Since(m.lastUpdate).Round(time.Second))))
	}
	return strings.Join(parts, "  │  ")
}

// Program holds the running program so background goroutines can Send.
var Program *tea.Program

// OnStartModules is called once the welcome screen completes.
var OnStartModules func()

// OnRefresh is called when the user asks for an immediate fan-out.
var OnRefresh func()

// OnPauseToggle is called with the new pause state.
var OnPauseToggle func(paused bool)

// Send delivers msg to the running program, if any.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
