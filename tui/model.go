package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// tickMsg is fired every second to update the countdown timer.
type tickMsg time.Time

// state represents the current phase of the login flow.
type state int

const (
	stateInit       state = iota
	stateRefreshing       // refreshing existing token
	stateBrowserAuth      // authorization URL shown, waiting for the browser
	stateCallingAPI       // calling the demo API
	stateLoggingOut       // revoking and clearing the session
	stateSuccess          // session in place
	stateLoggedOut        // logout finished
	stateError            // fatal error
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

// Model is the BubbleTea model for the login-flow TUI.
type Model struct {
	state   state
	spinner spinner.Model
	width   int
	height  int

	// Authorization info
	authorizeURL string
	authExpiry   time.Time
	remaining    time.Duration

	// Success / error display
	tokenPreview string
	tokenType    string
	expiresIn    time.Duration
	errMsg       string

	// Scrolling status log shown below the main panel
	statusLines []statusLine
}

// Lipgloss styles — defined once at package level.
var (
	styleTitleBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2)

	styleLinkBox = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("228")).
			Padding(0, 1)

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

	case tickMsg:
		m.remaining = max(time.Until(m.authExpiry), 0)
		if m.remaining > 0 {
			return m, tickAfterSecond()
		}
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	// ── Login flow messages ──────────────────────────────────────────────────

	case MsgBanner:
		return m, nil

	case MsgSessionFound:
		m.addStatus(statusOK, "Found existing session")
		return m, nil

	case MsgSessionNotFound:
		m.addStatus(statusInfo, "No existing session, starting login")
		return m, nil

	case MsgRefreshing:
		m.state = stateRefreshing
		m.addStatus(statusInfo, "Refreshing access token...")
		return m, nil

	case MsgRefreshOK:
		m.addStatus(statusOK, "Token refreshed successfully")
		return m, nil

	case MsgRefreshFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Refresh failed: %v", msg.Err))
		return m, nil

	case MsgAuthURLReady:
		m.authorizeURL = msg.URL
		m.authExpiry = msg.Expiry
		m.remaining = time.Until(msg.Expiry)
		m.state = stateBrowserAuth
		m.addStatus(statusInfo, "Waiting for browser authorization")
		return m, tickAfterSecond()

	case MsgAuthSuccess:
		m.addStatus(statusOK, "Authorization successful!")
		return m, nil

	case MsgSessionSaved:
		m.addStatus(statusOK, "Session saved to secure storage")
		return m, nil

	case MsgSessionSaveFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Warning: failed to save session: %v", msg.Err))
		return m, nil

	case MsgAPIRequest:
		m.state = stateCallingAPI
		m.addStatus(statusInfo, "Calling "+msg.Route+"...")
		return m, nil

	case MsgAPICallOK:
		m.addStatus(statusOK, msg.Route+": API call successful")
		return m, nil

	case MsgAPICallFailed:
		m.addStatus(statusWarn, fmt.Sprintf("%s: API call failed: %v", msg.Route, msg.Err))
		return m, nil

	case MsgAccessTokenRejected:
		m.addStatus(statusWarn, "Access token rejected (401), refreshing...")
		return m, nil

	case MsgTokenRefreshedRetrying:
		m.addStatus(statusOK, "Token refreshed, retrying API call...")
		return m, nil

	case MsgReAuthRequired:
		m.addStatus(statusWarn, "Refresh token no longer usable, signing in again...")
		return m, nil

	case MsgLoggingOut:
		m.state = stateLoggingOut
		m.addStatus(statusInfo, "Logging out...")
		return m, nil

	case MsgRevocationWarning:
		m.addStatus(statusWarn, fmt.Sprintf("Remote revocation failed: %v", msg.Err))
		return m, nil

	case MsgLoggedOut:
		m.state = stateLoggedOut
		m.addStatus(statusOK, "Local session cleared")
		return m, nil

	case MsgDone:
		m.tokenPreview = msg.Preview
		m.tokenType = msg.TokenType
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
	case stateLoggedOut:
		return tea.NewView(m.viewLoggedOut())
	case stateError:
		return tea.NewView(m.viewError())
	default:
		return tea.NewView(m.viewMain())
	}
}

// viewMain is shown during init, refresh, browser authorization, API calls,
// and logout.
func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleTitleBox.Render("  Cognito Hosted-UI Sign-In  "))
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowserAuth:
		b.WriteString(styleBold.Render("Open this link to sign in with Google:"))
		b.WriteString("\n\n")
		b.WriteString(styleLinkBox.Render(m.authorizeURL))
		b.WriteString("\n\n")

		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for authorization...")
		if m.remaining > 0 {
			b.WriteString("  ")
			b.WriteString(styleDim.Render(formatDuration(m.remaining) + " remaining"))
		}
		b.WriteString("\n")

	case stateRefreshing:
		b.WriteString(m.spinner.View())
		b.WriteString(" Refreshing access token...\n")

	case stateCallingAPI:
		b.WriteString(m.spinner.View())
		b.WriteString(" Calling the demo API...\n")

	case stateLoggingOut:
		b.WriteString(m.spinner.View())
		b.WriteString(" Logging out...\n")

	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" Initializing...\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewSuccess is shown once a valid session is in place.
func (m Model) viewSuccess() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleOK.Render("  ✓ Signed in!"))
	b.WriteString("\n\n")

	b.WriteString(styleBold.Render("Access Token: "))
	b.WriteString(m.tokenPreview + "...\n")

	b.WriteString(styleBold.Render("Token Type:   "))
	b.WriteString(m.tokenType + "\n")

	b.WriteString(styleBold.Render("Expires In:   "))
	b.WriteString(formatDuration(m.expiresIn) + "\n")

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewLoggedOut is shown after logout completes.
func (m Model) viewLoggedOut() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleOK.Render("  ✓ Logged out"))
	b.WriteString("\n")

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewError is shown when a fatal error occurs.
func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleErr.Render("  ✗ Authentication failed"))
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

// tickAfterSecond returns a command that fires tickMsg after one second.
func tickAfterSecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
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
