package tui

import (
	"fmt"
	"io"
	"time"

	tea "charm.land/bubbletea/v2"
)

// Displayer abstracts all output from the login/logout flow.
type Displayer interface {
	Banner()
	SessionFound()
	SessionNotFound()
	Refreshing()
	RefreshOK()
	RefreshFailed(err error)
	AuthURLReady(authorizeURL string, expiry time.Time)
	AuthSuccess()
	SessionSaved()
	SessionSaveFailed(err error)
	APIRequest(route string)
	APICallOK(route string)
	APICallFailed(route string, err error)
	AccessTokenRejected()
	TokenRefreshedRetrying()
	ReAuthRequired()
	LoggingOut()
	RevocationWarning(err error)
	LoggedOut()
	Done(preview, tokenType string, expiresIn time.Duration)
	Fatal(err error)
}

// PlainDisplayer writes plain text output to w. Used when stderr is not a TTY
// (pipes, CI, SSH without pty).
type PlainDisplayer struct {
	w io.Writer
}

// NewPlainDisplayer creates a PlainDisplayer that writes to w.
func NewPlainDisplayer(w io.Writer) *PlainDisplayer {
	return &PlainDisplayer{w: w}
}

func (p *PlainDisplayer) Banner() {
	fmt.Fprintln(p.w, "=== Cognito Hosted-UI PKCE Demo (with Refresh Token) ===")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) SessionFound() {
	fmt.Fprintln(p.w, "Found existing session!")
}

func (p *PlainDisplayer) SessionNotFound() {
	fmt.Fprintln(p.w, "No existing session found, starting login...")
}

func (p *PlainDisplayer) Refreshing() {
	fmt.Fprintln(p.w, "Refreshing access token...")
}

func (p *PlainDisplayer) RefreshOK() {
	fmt.Fprintln(p.w, "Token refreshed successfully!")
}

func (p *PlainDisplayer) RefreshFailed(err error) {
	fmt.Fprintf(p.w, "Refresh failed: %v\n", err)
}

func (p *PlainDisplayer) AuthURLReady(authorizeURL string, expiry time.Time) {
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintf(p.w, "Please open this link to sign in with Google:\n%s\n", authorizeURL)
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintln(p.w, "Waiting for authorization...")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) AuthSuccess() {
	fmt.Fprintln(p.w, "\nAuthorization successful!")
}

func (p *PlainDisplayer) SessionSaved() {
	fmt.Fprintln(p.w, "Session saved to secure storage")
}

func (p *PlainDisplayer) SessionSaveFailed(err error) {
	fmt.Fprintf(p.w, "Warning: Failed to save session: %v\n", err)
}

func (p *PlainDisplayer) APIRequest(route string) {
	fmt.Fprintf(p.w, "\nCalling %s...\n", route)
}

func (p *PlainDisplayer) APICallOK(route string) {
	fmt.Fprintf(p.w, "%s: API call successful!\n", route)
}

func (p *PlainDisplayer) APICallFailed(route string, err error) {
	fmt.Fprintf(p.w, "%s: API call failed: %v\n", route, err)
}

func (p *PlainDisplayer) AccessTokenRejected() {
	fmt.Fprintln(p.w, "Access token rejected (401), refreshing...")
}

func (p *PlainDisplayer) TokenRefreshedRetrying() {
	fmt.Fprintln(p.w, "Token refreshed, retrying API call...")
}

func (p *PlainDisplayer) ReAuthRequired() {
	fmt.Fprintln(p.w, "Refresh token no longer usable, signing in again...")
}

func (p *PlainDisplayer) LoggingOut() {
	fmt.Fprintln(p.w, "Logging out...")
}

func (p *PlainDisplayer) RevocationWarning(err error) {
	fmt.Fprintf(p.w, "Warning: remote revocation failed: %v\n", err)
}

func (p *PlainDisplayer) LoggedOut() {
	fmt.Fprintln(p.w, "Logged out, local session cleared")
}

func (p *PlainDisplayer) Done(preview, tokenType string, expiresIn time.Duration) {
	fmt.Fprintln(p.w, "\n========================================")
	fmt.Fprintln(p.w, "Current Token Info:")
	fmt.Fprintf(p.w, "Access Token: %s...\n", preview)
	fmt.Fprintf(p.w, "Token Type: %s\n", tokenType)
	fmt.Fprintf(p.w, "Expires In: %s\n", expiresIn.Round(time.Second))
	fmt.Fprintln(p.w, "========================================")
}

func (p *PlainDisplayer) Fatal(err error) {
	fmt.Fprintf(p.w, "Error: %v\n", err)
}

// NoopDisplayer is a no-op implementation used in tests.
type NoopDisplayer struct{}

func (NoopDisplayer) Banner()                                 {}
func (NoopDisplayer) SessionFound()                           {}
func (NoopDisplayer) SessionNotFound()                        {}
func (NoopDisplayer) Refreshing()                             {}
func (NoopDisplayer) RefreshOK()                              {}
func (NoopDisplayer) RefreshFailed(_ error)                   {}
func (NoopDisplayer) AuthURLReady(_ string, _ time.Time)      {}
func (NoopDisplayer) AuthSuccess()                            {}
func (NoopDisplayer) SessionSaved()                           {}
func (NoopDisplayer) SessionSaveFailed(_ error)               {}
func (NoopDisplayer) APIRequest(_ string)                     {}
func (NoopDisplayer) APICallOK(_ string)                      {}
func (NoopDisplayer) APICallFailed(_ string, _ error)         {}
func (NoopDisplayer) AccessTokenRejected()                    {}
func (NoopDisplayer) TokenRefreshedRetrying()                 {}
func (NoopDisplayer) ReAuthRequired()                         {}
func (NoopDisplayer) LoggingOut()                             {}
func (NoopDisplayer) RevocationWarning(_ error)               {}
func (NoopDisplayer) LoggedOut()                              {}
func (NoopDisplayer) Done(_, _ string, _ time.Duration)       {}
func (NoopDisplayer) Fatal(_ error)                           {}

// ProgramDisplayer sends BubbleTea messages to a running tea.Program.
type ProgramDisplayer struct {
	p *tea.Program
}

// NewProgramDisplayer creates a ProgramDisplayer that sends messages to p.
func NewProgramDisplayer(p *tea.Program) *ProgramDisplayer {
	return &ProgramDisplayer{p: p}
}

func (t *ProgramDisplayer) Banner() {
	t.p.Send(MsgBanner{})
}

func (t *ProgramDisplayer) SessionFound() {
	t.p.Send(MsgSessionFound{})
}

func (t *ProgramDisplayer) SessionNotFound() {
	t.p.Send(MsgSessionNotFound{})
}

func (t *ProgramDisplayer) Refreshing() {
	t.p.Send(MsgRefreshing{})
}

func (t *ProgramDisplayer) RefreshOK() {
	t.p.Send(MsgRefreshOK{})
}

func (t *ProgramDisplayer) RefreshFailed(err error) {
	t.p.Send(MsgRefreshFailed{Err: err})
}

func (t *ProgramDisplayer) AuthURLReady(authorizeURL string, expiry time.Time) {
	t.p.Send(MsgAuthURLReady{URL: authorizeURL, Expiry: expiry})
}

func (t *ProgramDisplayer) AuthSuccess() {
	t.p.Send(MsgAuthSuccess{})
}

func (t *ProgramDisplayer) SessionSaved() {
	t.p.Send(MsgSessionSaved{})
}

func (t *ProgramDisplayer) SessionSaveFailed(err error) {
	t.p.Send(MsgSessionSaveFailed{Err: err})
}

func (t *ProgramDisplayer) APIRequest(route string) {
	t.p.Send(MsgAPIRequest{Route: route})
}

func (t *ProgramDisplayer) APICallOK(route string) {
	t.p.Send(MsgAPICallOK{Route: route})
}

func (t *ProgramDisplayer) APICallFailed(route string, err error) {
	t.p.Send(MsgAPICallFailed{Route: route, Err: err})
}

func (t *ProgramDisplayer) AccessTokenRejected() {
	t.p.Send(MsgAccessTokenRejected{})
}

func (t *ProgramDisplayer) TokenRefreshedRetrying() {
	t.p.Send(MsgTokenRefreshedRetrying{})
}

func (t *ProgramDisplayer) ReAuthRequired() {
	t.p.Send(MsgReAuthRequired{})
}

func (t *ProgramDisplayer) LoggingOut() {
	t.p.Send(MsgLoggingOut{})
}

func (t *ProgramDisplayer) RevocationWarning(err error) {
	t.p.Send(MsgRevocationWarning{Err: err})
}

func (t *ProgramDisplayer) LoggedOut() {
	t.p.Send(MsgLoggedOut{})
}

func (t *ProgramDisplayer) Done(preview, tokenType string, expiresIn time.Duration) {
	t.p.Send(MsgDone{Preview: preview, TokenType: tokenType, ExpiresIn: expiresIn})
}

func (t *ProgramDisplayer) Fatal(err error) {
	t.p.Send(MsgFatal{Err: err})
}
