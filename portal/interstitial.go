package portal

import (
	"strings"
	"time"

	"portalverify/browser"
	"portalverify/locator"
)

// The access-warning gate some deployments put in front of the portal. It is
// recognized by title or by its notice text, and dismissed by whatever
// continue-style control it renders.
const (
	interstitialAttempts = 6
	interstitialSettle   = 500 * time.Millisecond
)

var (
	interstitialTitleMarkers = []string{"warning", "access agreement", "notice to users"}

	interstitialBodyPhrase = "authorized users only"

	dismissVocabulary = []string{"continue", "accept", "proceed", "agree", "i agree"}

	clickableSelectors = []string{
		"button",
		`input[type="submit"]`,
		`input[type="button"]`,
		"a",
	}

	submitControlCandidates = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
	}
)

// BypassInterstitial dismisses the access-warning gate when present,
// looping because some deployments chain more than one page (and a
// client-side redirect can re-render it). No-op when never detected; a gate
// that refuses to go away is logged, not fatal — the caller's next step
// fails with better context.
func BypassInterstitial(page browser.Page, logg Logger) {
	if logg == nil {
		logg = &SimpleLogger{}
	}

	for attempt := 0; attempt < interstitialAttempts; attempt++ {
		dismiss, detected := detectInterstitial(page)
		if !detected {
			if attempt > 0 {
				logg.Printf("      ✅ Interstitial dismissed")
			}
			return
		}
		if dismiss == nil {
			logg.Printf("      ⚠️  Interstitial detected but no dismiss control visible, leaving it to the next step")
			return
		}

		logg.Printf("[gate] 🚧 Access interstitial detected (attempt %d), dismissing...", attempt+1)
		if err := dismiss.Click(); err != nil {
			logg.Errorf("interstitial dismiss click failed: %v", err)
			return
		}
		if err := page.WaitReady(); err != nil {
			logg.Errorf("wait for DOM ready after dismiss failed: %v", err)
		}
		// Absorb client-side redirects before re-checking.
		time.Sleep(interstitialSettle)
	}

	logg.Printf("      ⚠️  Interstitial still present after %d attempts", interstitialAttempts)
}

// detectInterstitial reports whether the gate is currently shown and, when
// it is, the control that dismisses it. A failing title or body read is
// treated as "not present", never as an error.
func detectInterstitial(page browser.Page) (browser.Element, bool) {
	titleHit := false
	if title, err := page.Title(); err == nil {
		lowered := strings.ToLower(title)
		for _, marker := range interstitialTitleMarkers {
			if strings.Contains(lowered, marker) {
				titleHit = true
				break
			}
		}
	}

	bodyHit := false
	if body, err := page.BodyText(); err == nil {
		bodyHit = strings.Contains(strings.ToLower(body), interstitialBodyPhrase)
	}

	dismiss := findDismissControl(page)

	if titleHit {
		return dismiss, true
	}
	if bodyHit && dismiss != nil {
		return dismiss, true
	}
	return nil, false
}

func findDismissControl(page browser.Page) browser.Element {
	if el, ok := locator.FirstVisible(page, submitControlCandidates); ok {
		return el
	}
	if el, ok := locator.FirstVisibleWithText(page, clickableSelectors, dismissVocabulary); ok {
		return el
	}
	return nil
}
