package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// state represents the current phase of the session flow.
type state int

const (
	stateInit          state = iota
	stateBootstrapping       // recovering a session at startup
	stateRefreshing          // exchanging the refresh cookie
	stateNavigating          // guard evaluation in progress
	stateLoading             // view loading its list endpoint
	stateLoginRequired       // guard redirected to login
	stateSuccess             // all done
	stateError               // fatal error
)

// statusKind distinguishes line types in the status log.
type statusKind int

const (
	statusOK   statusKind = iota
	statusWarn            // warning / non-fatal
	statusInfo            // neutral info
)

// statusLine is one row in the scrolling status log.
type statusLine struct {
	kind statusKind
	text string
}

// Model is the BubbleTea model for the session TUI.
type Model struct {
	state   state
	spinner spinner.Model
	width   int
	height  int

	// Current navigation
	path     string
	resource string

	// Login redirect
	loginURL  string
	returnURL string
	notice    string

	// Success / error display
	tokenPreview string
	user         string
	expiresIn    time.Duration
	errMsg       string

	// Scrolling status log shown below the main panel
	statusLines []statusLine
}

// Lipgloss styles, defined once at package level.
var (
	styleTitleBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2)

	styleLinkBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("228")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("228")).
			Padding(0, 2)

	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleBold = lipgloss.NewStyle().Bold(true)
)

// NewModel creates the initial TUI model.
func NewModel() Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))),
	)
	return Model{
		state:   stateInit,
		spinner: s,
	}
}

// Init starts the spinner animation.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	// ── Session flow messages ───────────────────────────────────────────────

	case MsgBanner:
		return m, nil

	case MsgBootstrapping:
		m.state = stateBootstrapping
		return m, nil

	case MsgSessionRecovered:
		m.addStatus(statusOK, "Session recovered from refresh cookie")
		return m, nil

	case MsgNoSession:
		m.addStatus(statusInfo, "No session yet")
		return m, nil

	case MsgNavigating:
		m.path = msg.Path
		m.state = stateNavigating
		m.addStatus(statusInfo, "Navigating to "+msg.Path)
		return m, nil

	case MsgLanded:
		m.path = msg.Path
		m.addStatus(statusOK, fmt.Sprintf("Opened %s (%s)", msg.Title, msg.Path))
		return m, nil

	case MsgRefreshing:
		if m.state == stateInit {
			m.state = stateRefreshing
		}
		m.addStatus(statusInfo, "Refreshing access token...")
		return m, nil

	case MsgRefreshOK:
		m.addStatus(statusOK, "Token refreshed successfully")
		return m, nil

	case MsgRefreshFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Refresh failed: %v", msg.Err))
		return m, nil

	case MsgAccessTokenRejected:
		m.addStatus(statusWarn, "Access token rejected (401), refreshing...")
		return m, nil

	case MsgTokenRefreshedRetrying:
		m.addStatus(statusOK, "Token refreshed, retrying API call...")
		return m, nil

	case MsgLoading:
		m.resource = msg.Resource
		m.state = stateLoading
		return m, nil

	case MsgLoaded:
		m.addStatus(statusOK, fmt.Sprintf("Loaded %d records from %s", msg.Count, m.resource))
		return m, nil

	case MsgLoadFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Loading failed: %v", msg.Err))
		return m, nil

	case MsgLoginRequired:
		m.loginURL = msg.LoginURL
		m.returnURL = msg.ReturnURL
		m.notice = msg.Notice
		m.state = stateLoginRequired
		return m, nil

	case MsgCallbackCompleted:
		m.addStatus(statusOK, "Google sign-in finished, continuing to "+msg.Target)
		return m, nil

	case MsgLoggedOut:
		m.addStatus(statusOK, "Logged out")
		return m, nil

	case MsgCookiesSaved:
		m.addStatus(statusOK, "Cookies saved to "+msg.Path)
		return m, nil

	case MsgCookieSaveFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Warning: failed to save cookies: %v", msg.Err))
		return m, nil

	case MsgDone:
		m.tokenPreview = msg.Preview
		m.user = msg.User
		m.expiresIn = msg.ExpiresIn
		m.state = stateSuccess
		return m, nil

	case MsgFatal:
		m.errMsg = msg.Err.Error()
		m.state = stateError
		return m, nil
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() tea.View {
	switch m.state {
	case stateSuccess:
		return tea.NewView(m.viewSuccess())
	case stateLoginRequired:
		return tea.NewView(m.viewLogin())
	case stateError:
		return tea.NewView(m.viewError())
	default:
		return tea.NewView(m.viewMain())
	}
}

// viewMain is shown while the session is being recovered and views load.
func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleTitleBox.Render("  Admin Session  "))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	switch m.state {
	case stateBootstrapping:
		b.WriteString(" Recovering session...\n")
	case stateRefreshing:
		b.WriteString(" Refreshing access token...\n")
	case stateNavigating:
		b.WriteString(" Opening " + m.path + "...\n")
	case stateLoading:
		b.WriteString(" Loading " + m.resource + "...\n")
	default:
		b.WriteString(" Initializing...\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewLogin is shown when the guard sent the user to the login view.
func (m Model) viewLogin() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleWarn.Render("  ⚠ Sign-in required"))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(styleBold.Render(m.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(styleBold.Render("Sign in with Google:"))
	b.WriteString("\n")
	b.WriteString(styleLinkBox.Render(m.loginURL))
	b.WriteString("\n")

	if m.returnURL != "" {
		b.WriteString(styleDim.Render("You will be returned to " + m.returnURL))
		b.WriteString("\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewSuccess is shown once a protected view was loaded.
func (m Model) viewSuccess() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleOK.Render("  ✓ Session active"))
	b.WriteString("\n\n")

	b.WriteString(styleBold.Render("Access Token: "))
	b.WriteString(m.tokenPreview + "...\n")

	if m.user != "" {
		b.WriteString(styleBold.Render("User:         "))
		b.WriteString(m.user + "\n")
	}

	if m.expiresIn > 0 {
		b.WriteString(styleBold.Render("Expires In:   "))
		b.WriteString(formatDuration(m.expiresIn) + "\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewError is shown when a fatal error occurs.
func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleErr.Render("  ✗ Session failed"))
	b.WriteString("\n\n")
	b.WriteString(styleDim.Render("  " + m.errMsg))
	b.WriteString("\n")

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewStatusLog renders the scrolling status log.
func (m Model) viewStatusLog() string {
	if len(m.statusLines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")

	for _, line := range m.statusLines {
		switch line.kind {
		case statusOK:
			b.WriteString(styleOK.Render("  ✓ " + line.text))
		case statusWarn:
			b.WriteString(styleWarn.Render("  ⚠ " + line.text))
		default:
			b.WriteString(styleDim.Render("  · " + line.text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// addStatus appends a line to the status log.
func (m *Model) addStatus(kind statusKind, text string) {
	m.statusLines = append(m.statusLines, statusLine{kind: kind, text: text})
}

// formatDuration formats a duration as "Xm Ys" or "Xs".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
