package portal

import (
	"fmt"
	"strings"
	"time"

	"portalverify/artifacts"
	"portalverify/browser"
	"portalverify/locator"
)

// Failure phrases the portal is known to render after a rejected submit.
// Matched case-insensitively against the visible body text.
var failurePhrases = []string{
	"authentication failed",
	"incorrect credentials",
	"username is required",
	"user name is required",
	"password is required",
}

// Rotation detection and completion tables.
var (
	rotationTitleVocabulary  = []string{"change password", "password expired", "update password", "new password"}
	rotationSubmitVocabulary = []string{"save", "change", "submit", "update"}
	rotationRecheckWords     = []string{"required", "must", "error"}
)

// Authenticated-UI signals: each one is individually weak, any one visible
// is sufficient. Ordered roughly by reliability.
var authenticatedSignals = []string{
	`a[href*="logout"]`,
	`#logout`,
	`[id*="mainMenu"]`,
	`[class*="user-menu"]`,
	"nav",
}

const (
	passwordInputSelector = `input[type="password"]`

	submitSettle   = 1 * time.Second
	rotationSettle = 300 * time.Millisecond
	signalInterval = 300 * time.Millisecond

	// DefaultSignalDeadline bounds the post-submit wait for an authenticated
	// signal; MaxSignalDeadline is the hard cap for slow deployments.
	DefaultSignalDeadline = 60 * time.Second
	MaxSignalDeadline     = 90 * time.Second
)

// State is the terminal state of one authentication attempt.
type State string

const (
	StateAuthenticated   State = "authenticated"
	StateExplicitFailure State = "explicit_failure"
	StateTimedOut        State = "timed_out"
	StateError           State = "error"
)

// Outcome is computed per attempt and never persisted.
type Outcome struct {
	State   State
	Reason  string
	Rotated bool
}

// Credentials for the portal. Replacement is only needed when the portal
// forces a rotation mid-login; it cannot be guessed, so its absence at that
// point is a configuration error.
type Credentials struct {
	Username    string
	Password    string
	Replacement string
}

// Options tune one authentication run.
type Options struct {
	BaseURL        string
	SignalDeadline time.Duration
	Artifacts      *artifacts.Run
	Tracer         browser.Tracer
	Logger         Logger
}

// Authenticator drives the login sequence end to end: interstitial bypass,
// form resolution, fill with read-back verification, submit, explicit
// failure scan, the optional forced-rotation sub-flow, and the signal wait.
type Authenticator struct {
	page  browser.Page
	creds Credentials
	opts  Options
}

func New(page browser.Page, creds Credentials, opts Options) *Authenticator {
	if opts.Logger == nil {
		opts.Logger = &SimpleLogger{}
	}
	if opts.SignalDeadline == 0 {
		opts.SignalDeadline = DefaultSignalDeadline
	}
	if opts.SignalDeadline > MaxSignalDeadline {
		opts.SignalDeadline = MaxSignalDeadline
	}
	return &Authenticator{page: page, creds: creds, opts: opts}
}

// Run executes the flow. The tracing session is started on entry and
// finalized on every exit path; any failure triggers best-effort diagnostic
// capture before the error propagates.
func (a *Authenticator) Run() (Outcome, error) {
	logg := a.opts.Logger

	if a.opts.Tracer != nil {
		if err := a.opts.Tracer.Start(); err != nil {
			logg.Errorf("trace start failed: %v", err)
		}
		defer func() {
			path := artifacts.TraceName
			if a.opts.Artifacts != nil {
				path = a.opts.Artifacts.TracePath()
			}
			if err := a.opts.Tracer.Stop(path); err != nil {
				logg.Errorf("trace stop failed: %v", err)
			} else {
				logg.Printf("🧵 Trace saved to %s", path)
			}
		}()
	}

	outcome, err := a.run()
	if err != nil && a.opts.Artifacts != nil {
		a.opts.Artifacts.CaptureFailure(a.page, logg)
	}
	return outcome, err
}

func (a *Authenticator) run() (Outcome, error) {
	logg := a.opts.Logger

	logg.Printf("[1/5] 🚧 Checking for access interstitial...")
	BypassInterstitial(a.page, logg)

	logg.Printf("[2/5] 🔍 Resolving login form...")
	resolver := &FormResolver{Page: a.page, BaseURL: a.opts.BaseURL, Logger: logg}
	form, err := resolver.Resolve()
	if err != nil {
		return Outcome{State: StateError, Reason: err.Error()}, err
	}

	logg.Printf("[3/5] ⌨️  Filling credentials for %s", a.creds.Username)
	if err := a.fillAndVerify(form); err != nil {
		return Outcome{State: StateError, Reason: err.Error()}, err
	}

	if a.opts.Artifacts != nil {
		a.opts.Artifacts.Screenshot(a.page, "before_login", logg)
	}

	logg.Printf("[4/5] 📤 Submitting login form...")
	if err := form.Submit.Click(); err != nil {
		err = fmt.Errorf("submit click failed: %w", err)
		return Outcome{State: StateError, Reason: err.Error()}, err
	}
	if err := a.page.WaitReady(); err != nil {
		logg.Errorf("wait for DOM ready after submit failed: %v", err)
	}
	time.Sleep(submitSettle)

	if phrase, rejected := a.scanFailureText(); rejected {
		err := &AuthenticationRejectedError{Phrase: phrase}
		return Outcome{State: StateExplicitFailure, Reason: phrase}, err
	}

	rotated := false
	time.Sleep(rotationSettle)
	if a.rotationRequired() {
		logg.Printf("      🔁 Forced credential rotation detected")
		if err := a.completeRotation(); err != nil {
			return Outcome{State: StateError, Reason: err.Error(), Rotated: false}, err
		}
		rotated = true
	}

	logg.Printf("[5/5] ⏳ Waiting for authenticated-UI signal (up to %s)...", a.opts.SignalDeadline)
	if !a.waitForAuthenticatedSignal() {
		err := &AuthenticationSignalTimeoutError{Deadline: a.opts.SignalDeadline}
		return Outcome{State: StateTimedOut, Reason: err.Error(), Rotated: rotated}, err
	}

	if a.opts.Artifacts != nil {
		a.opts.Artifacts.Screenshot(a.page, "after_login", logg)
	}
	logg.Printf("      ✅ Authenticated")
	return Outcome{State: StateAuthenticated, Rotated: rotated}, nil
}

// fillAndVerify fills both fields and independently reads the values back.
// An empty read-back is evidence of a wrong-scope bug (fields belonging to
// some other form), so it is a hard stop rather than a retry.
func (a *Authenticator) fillAndVerify(form *LoginForm) error {
	if err := form.Username.Fill(a.creds.Username); err != nil {
		return fmt.Errorf("failed to fill identity field: %w", err)
	}
	if err := form.Password.Fill(a.creds.Password); err != nil {
		return fmt.Errorf("failed to fill credential field: %w", err)
	}

	if v, err := form.Username.Value(); err != nil || v == "" {
		return fmt.Errorf("identity field read back empty after fill (read err: %v) — wrong-scope form resolution suspected", err)
	}
	if v, err := form.Password.Value(); err != nil || v == "" {
		return fmt.Errorf("credential field read back empty after fill (read err: %v) — wrong-scope form resolution suspected", err)
	}
	return nil
}

// scanFailureText looks for an explicit rejection phrase in the visible
// body text. A failing read means "no phrase", never an error.
func (a *Authenticator) scanFailureText() (string, bool) {
	body, err := a.page.BodyText()
	if err != nil {
		return "", false
	}
	lowered := strings.ToLower(body)
	for _, phrase := range failurePhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// rotationRequired checks two independent weak signals: rotation vocabulary
// in the title, or two or more visible credential inputs at once (the
// new-plus-confirm pattern). Either alone is sufficient.
func (a *Authenticator) rotationRequired() bool {
	if title, err := a.page.Title(); err == nil {
		lowered := strings.ToLower(title)
		for _, word := range rotationTitleVocabulary {
			if strings.Contains(lowered, word) {
				return true
			}
		}
	}
	return len(a.visiblePasswordInputs()) >= 2
}

func (a *Authenticator) visiblePasswordInputs() []browser.Element {
	var out []browser.Element
	for _, scope := range locator.Scopes(a.page) {
		elements, err := scope.QueryAll(passwordInputSelector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if visible, err := el.Visible(); err == nil && visible {
				out = append(out, el)
			}
		}
	}
	return out
}

// completeRotation fills the rotation interstitial with the replacement
// credential (index 0 = new, index 1 = confirm) and submits it once. The
// post-submit re-check is a soft warning only: the portal's password-policy
// rejection text is not knowable in general, so the signal wait that
// follows stays the authoritative check.
func (a *Authenticator) completeRotation() error {
	logg := a.opts.Logger

	if a.creds.Replacement == "" {
		return &RotationCredentialMissingError{}
	}

	inputs := a.visiblePasswordInputs()
	for i, el := range inputs {
		if i > 1 {
			break
		}
		if err := el.Fill(a.creds.Replacement); err != nil {
			return fmt.Errorf("failed to fill rotation field %d: %w", i, err)
		}
	}

	submit, ok := locator.FirstVisible(a.page, submitControlCandidates)
	if !ok {
		submit, ok = locator.FirstVisibleWithText(a.page, clickableSelectors, rotationSubmitVocabulary)
	}
	if !ok {
		return &RotationSubmitNotFoundError{}
	}

	logg.Printf("      📤 Submitting replacement credential...")
	if err := submit.Click(); err != nil {
		return fmt.Errorf("rotation submit click failed: %w", err)
	}
	if err := a.page.WaitReady(); err != nil {
		logg.Errorf("wait for DOM ready after rotation submit failed: %v", err)
	}
	time.Sleep(submitSettle)

	if word, hit := a.rotationRecheck(); hit {
		// Unreliable by nature; logged, never enforced.
		logg.Printf("      ⚠️  Page still mentions %q after rotation submit — continuing, signal wait will decide", word)
	}
	return nil
}

func (a *Authenticator) rotationRecheck() (string, bool) {
	var texts []string
	if title, err := a.page.Title(); err == nil {
		texts = append(texts, title)
	}
	if body, err := a.page.BodyText(); err == nil {
		texts = append(texts, body)
	}
	joined := strings.ToLower(strings.Join(texts, " "))
	for _, word := range rotationTitleVocabulary {
		if strings.Contains(joined, word) {
			return word, true
		}
	}
	for _, word := range rotationRecheckWords {
		if strings.Contains(joined, word) {
			return word, true
		}
	}
	return "", false
}

func (a *Authenticator) waitForAuthenticatedSignal() bool {
	return locator.PollUntil(a.opts.SignalDeadline, signalInterval, func() bool {
		_, _, ok := locator.FirstVisibleInAnyScope(a.page, authenticatedSignals)
		return ok
	})
}
