package portal

import (
	"strings"
	"time"

	"portalverify/browser"
	"portalverify/locator"
)

// Candidate tables, most site-specific first. New portal variants are
// handled by extending these tables, not by new code paths.
var (
	passwordFieldCandidates = []string{
		`input#loginPass`,
		`input[name*="password"]`,
		`input[id*="passwd"]`,
		`input[type="password"]`,
	}

	usernameFieldCandidates = []string{
		`input#loginName`,
		`input[name*="user"]`,
		`input[autocomplete="username"]`,
		`input[type="email"]`,
		`input[type="text"]`,
	}

	signInVocabulary = []string{"log in", "login", "sign in", "sign on"}
)

// Relative path that renders the bare login widget even when the landing
// page hides it behind client-side routing.
const loginWidgetPath = "/login"

const (
	formResolveDeadline = 15 * time.Second
	formRetryDeadline   = 5 * time.Second
	fieldResolveTimeout = 5 * time.Second
	revealSettle        = 750 * time.Millisecond
)

// LoginForm is one coherent form reference: the scope holding it and the
// three controls, all resolved from the same enclosing form element. The
// resolver never mixes fields from different forms.
type LoginForm struct {
	Scope    browser.Scope
	Username browser.Element
	Password browser.Element
	Submit   browser.Element
}

// FormResolver locates the login form wherever the portal decided to render
// it: the page, any frame, behind a reveal trigger, or only on the direct
// login path.
type FormResolver struct {
	Page    browser.Page
	BaseURL string
	Logger  Logger

	// FirstDeadline bounds the initial patient search; fallback retries use
	// a shorter deadline and FieldDeadline bounds the per-field resolution
	// inside a found form. Zero values take the package defaults.
	FirstDeadline time.Duration
	RetryDeadline time.Duration
	FieldDeadline time.Duration
}

func (r *FormResolver) log() Logger {
	if r.Logger == nil {
		return &SimpleLogger{}
	}
	return r.Logger
}

// Resolve runs the strategy ladder and returns the first coherent form.
func (r *FormResolver) Resolve() (*LoginForm, error) {
	logg := r.log()
	firstDeadline := r.FirstDeadline
	if firstDeadline == 0 {
		firstDeadline = formResolveDeadline
	}
	retryDeadline := r.RetryDeadline
	if retryDeadline == 0 {
		retryDeadline = formRetryDeadline
	}

	var attempts []string

	// The password field anchors the search: a visible credential input is
	// the strongest signal of "this is the login form".
	logg.Printf("[form] 🔍 Searching for credential field across page and frames...")
	password, scope, err := locator.WaitVisibleInAnyScope(r.Page, passwordFieldCandidates, firstDeadline)
	if err == nil {
		return r.buildForm(scope, password, &attempts)
	}
	attempts = append(attempts, "multi-scope search: "+err.Error())

	// Reveal trigger: a sign-in call to action may lazily render the form.
	if cta, ok := locator.FirstVisibleWithText(r.Page, clickableSelectors, signInVocabulary); ok {
		logg.Printf("[form] 👆 Clicking reveal trigger and retrying...")
		if err := cta.Click(); err != nil {
			attempts = append(attempts, "reveal trigger click failed: "+err.Error())
		} else {
			time.Sleep(revealSettle)
			password, scope, err = locator.WaitVisibleInAnyScope(r.Page, passwordFieldCandidates, retryDeadline)
			if err == nil {
				return r.buildForm(scope, password, &attempts)
			}
			attempts = append(attempts, "after reveal trigger: "+err.Error())
		}
	} else {
		attempts = append(attempts, "no reveal trigger visible")
	}

	// Direct navigation to the known alternate render path.
	if r.BaseURL != "" {
		target := joinURL(r.BaseURL, loginWidgetPath)
		logg.Printf("[form] 🧭 Navigating directly to %s and retrying...", target)
		if err := r.Page.Navigate(target); err != nil {
			attempts = append(attempts, "direct navigation failed: "+err.Error())
		} else {
			if err := r.Page.WaitReady(); err != nil {
				logg.Errorf("wait for DOM ready after direct navigation failed: %v", err)
			}
			password, scope, err = locator.WaitVisibleInAnyScope(r.Page, passwordFieldCandidates, retryDeadline)
			if err == nil {
				return r.buildForm(scope, password, &attempts)
			}
			attempts = append(attempts, "after direct navigation: "+err.Error())
		}
	}

	return nil, &LoginFormNotFoundError{Attempts: attempts}
}

// buildForm resolves the username field and submit control from the same
// enclosing form as the credential field. When no visible form element
// encloses the field, the whole scope is the boundary (degraded mode: still
// correct, less precise).
func (r *FormResolver) buildForm(scope browser.Scope, password browser.Element, attempts *[]string) (*LoginForm, error) {
	logg := r.log()

	var boundary browser.Queryable = scope
	boundaryDesc := scope.Describe()
	form, err := password.EnclosingForm()
	if err == nil && form != nil {
		if visible, err := form.Visible(); err == nil && visible {
			boundary = form
			boundaryDesc = "enclosing form in " + scope.Describe()
		} else {
			logg.Printf("[form] ⚠️  Enclosing form not visible, falling back to document boundary")
		}
	} else {
		logg.Printf("[form] ⚠️  No enclosing form element, falling back to document boundary")
	}

	fieldDeadline := r.FieldDeadline
	if fieldDeadline == 0 {
		fieldDeadline = fieldResolveTimeout
	}

	username, err := locator.WaitVisible(boundary, boundaryDesc, usernameFieldCandidates, fieldDeadline)
	if err != nil {
		*attempts = append(*attempts, "identity field: "+err.Error())
		return nil, &LoginFormNotFoundError{Attempts: *attempts}
	}

	submit, ok := findSubmitControl(boundary, fieldDeadline)
	if !ok {
		*attempts = append(*attempts, "submit control not found in "+boundaryDesc)
		return nil, &LoginFormNotFoundError{Attempts: *attempts}
	}

	logg.Printf("[form] ✅ Login form resolved in %s", boundaryDesc)
	return &LoginForm{Scope: scope, Username: username, Password: password, Submit: submit}, nil
}

// findSubmitControl tries explicit submit-typed controls first, then any
// visible button whose text matches the sign-in vocabulary, polling both
// tiers each tick.
func findSubmitControl(in browser.Queryable, deadline time.Duration) (browser.Element, bool) {
	var found browser.Element
	hit := locator.PollUntil(deadline, locator.DefaultInterval, func() bool {
		if el, ok := locator.FirstVisible(in, submitControlCandidates); ok {
			found = el
			return true
		}
		if el, ok := locator.FirstVisibleWithText(in, clickableSelectors, signInVocabulary); ok {
			found = el
			return true
		}
		return false
	})
	return found, hit
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
