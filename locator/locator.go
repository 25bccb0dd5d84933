// Package locator implements resilient element discovery over an unknown
// DOM: ordered candidate selectors gated by visibility, searched across the
// page and all of its frames, with one shared bounded-poll primitive.
package locator

import (
	"fmt"
	"strings"
	"time"

	"portalverify/browser"
)

// DefaultInterval is the poll tick for patient searches.
const DefaultInterval = 250 * time.Millisecond

// NotFoundError reports an exhausted patient search with enough context to
// diagnose which scope and which candidates were tried.
type NotFoundError struct {
	Scope      string
	Candidates []string
	Deadline   time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no visible element in %s within %s (candidates: %s)",
		e.Scope, e.Deadline, strings.Join(e.Candidates, ", "))
}

// PollUntil runs probe every interval until it returns true or the deadline
// elapses. The probe always runs at least once, so a zero deadline is a
// single immediate pass.
func PollUntil(deadline, interval time.Duration, probe func() bool) bool {
	stop := time.Now().Add(deadline)
	for {
		if probe() {
			return true
		}
		if !time.Now().Before(stop) {
			return false
		}
		time.Sleep(interval)
	}
}

// FirstVisible resolves candidates in order against one search boundary and
// returns the first element that exists and is visible. Single pass, never
// blocks. A candidate whose query fails is skipped, not fatal.
func FirstVisible(in browser.Queryable, candidates []string) (browser.Element, bool) {
	for _, selector := range candidates {
		el, err := in.Query(selector)
		if err != nil || el == nil {
			continue
		}
		visible, err := el.Visible()
		if err != nil {
			continue
		}
		if visible {
			return el, true
		}
	}
	return nil, false
}

// WaitVisible is the patient form of FirstVisible: it retries every tick
// until the deadline and then fails with a NotFoundError naming the scope.
func WaitVisible(in browser.Queryable, scopeDesc string, candidates []string, deadline time.Duration) (browser.Element, error) {
	var found browser.Element
	hit := PollUntil(deadline, DefaultInterval, func() bool {
		el, ok := FirstVisible(in, candidates)
		if ok {
			found = el
		}
		return ok
	})
	if !hit {
		return nil, &NotFoundError{Scope: scopeDesc, Candidates: candidates, Deadline: deadline}
	}
	return found, nil
}

// Scopes enumerates the page's search scopes: the page first, then every
// currently attached frame in attachment order. Enumerated fresh per call
// because frames attach and detach dynamically.
func Scopes(page browser.Page) []browser.Scope {
	return append([]browser.Scope{page}, page.Frames()...)
}

// FirstVisibleInAnyScope broadens FirstVisible across all scopes and returns
// the first hit together with the scope it was found in. A stale scope that
// errors on access is skipped rather than aborting the search.
func FirstVisibleInAnyScope(page browser.Page, candidates []string) (browser.Element, browser.Scope, bool) {
	for _, scope := range Scopes(page) {
		if el, ok := FirstVisible(scope, candidates); ok {
			return el, scope, true
		}
	}
	return nil, nil, false
}

// WaitVisibleInAnyScope is the patient form of FirstVisibleInAnyScope.
func WaitVisibleInAnyScope(page browser.Page, candidates []string, deadline time.Duration) (browser.Element, browser.Scope, error) {
	var (
		found   browser.Element
		foundIn browser.Scope
	)
	hit := PollUntil(deadline, DefaultInterval, func() bool {
		el, scope, ok := FirstVisibleInAnyScope(page, candidates)
		if ok {
			found, foundIn = el, scope
		}
		return ok
	})
	if !hit {
		return nil, nil, &NotFoundError{Scope: "page and all frames", Candidates: candidates, Deadline: deadline}
	}
	return found, foundIn, nil
}

// FirstVisibleWithText scans the elements matched by selectors for the first
// visible one whose text (or value attribute, for input controls) contains
// any vocabulary word, case-insensitively. This is how controls with no
// stable markup are found: submit buttons, reveal triggers, dismiss links.
func FirstVisibleWithText(in browser.Queryable, selectors []string, vocabulary []string) (browser.Element, bool) {
	for _, selector := range selectors {
		elements, err := in.QueryAll(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}
			text, err := el.Text()
			if err != nil {
				continue
			}
			if text == "" {
				text, _ = el.Attr("value")
			}
			if containsAnyFold(text, vocabulary) {
				return el, true
			}
		}
	}
	return nil, false
}

func containsAnyFold(text string, vocabulary []string) bool {
	lowered := strings.ToLower(text)
	for _, word := range vocabulary {
		if strings.Contains(lowered, strings.ToLower(word)) {
			return true
		}
	}
	return false
}
