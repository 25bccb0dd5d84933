package portal_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"portalverify/browser/fakedom"
	"portalverify/portal"
)

func TestBypassDismissesTitleGate(t *testing.T) {
	body := fakedom.NewNode("body")
	cont := fakedom.NewNode("button")
	cont.Text = "Continue"
	clicks := 0
	page := fakedom.NewPage(body)
	page.PageTitle = "WARNING - Restricted System"
	cont.OnClick = func() {
		clicks++
		page.PageTitle = "Portal Login"
	}
	body.Append(cont)

	portal.BypassInterstitial(page, nil)

	assert.Equal(t, 1, clicks)
	assert.Equal(t, "Portal Login", page.PageTitle)
}

func TestBypassChainedGates(t *testing.T) {
	body := fakedom.NewNode("body")
	page := fakedom.NewPage(body)
	page.PageTitle = "Warning"

	clicks := 0
	accept := fakedom.NewNode("button")
	accept.Text = "I Agree"
	accept.OnClick = func() {
		clicks++
		switch clicks {
		case 1:
			// A second gate replaces the first.
			page.PageTitle = "Access Agreement"
		default:
			page.PageTitle = "Portal Login"
		}
	}
	body.Append(accept)

	portal.BypassInterstitial(page, nil)

	assert.Equal(t, 2, clicks)
	assert.Equal(t, "Portal Login", page.PageTitle)
}

func TestBypassBodyPhraseNeedsDismissControl(t *testing.T) {
	notice := fakedom.NewNode("p")
	notice.Text = "This system is for authorized users only."
	page := fakedom.NewPage(fakedom.NewNode("body").Append(notice))
	page.PageTitle = "Portal"

	// Phrase present but nothing clickable: not treated as a gate.
	portal.BypassInterstitial(page, nil)
	assert.Equal(t, "Portal", page.PageTitle)
}

func TestBypassLeavesLoginPageAlone(t *testing.T) {
	submit := fakedom.NewNode("button", "type", "submit")
	submit.Text = "Log In"
	clicked := false
	submit.OnClick = func() { clicked = true }
	page := fakedom.NewPage(fakedom.NewNode("body").Append(submit))
	page.PageTitle = "Portal Login"

	portal.BypassInterstitial(page, nil)

	assert.False(t, clicked, "a login submit must never be mistaken for a dismiss control")
}

func TestBypassGivesUpOnStubbornGate(t *testing.T) {
	body := fakedom.NewNode("body")
	page := fakedom.NewPage(body)
	page.PageTitle = "Warning"

	clicks := 0
	cont := fakedom.NewNode("button")
	cont.Text = "Continue"
	cont.OnClick = func() { clicks++ } // gate never goes away
	body.Append(cont)

	portal.BypassInterstitial(page, nil)

	// Bounded retries, then give up without error.
	assert.Equal(t, 6, clicks)
}

func TestBypassTreatsReadFailuresAsAbsent(t *testing.T) {
	cont := fakedom.NewNode("button")
	cont.Text = "Continue"
	clicked := false
	cont.OnClick = func() { clicked = true }
	page := fakedom.NewPage(fakedom.NewNode("body").Append(cont))
	page.TitleErr = errors.New("page crashed")
	page.BodyErr = errors.New("page crashed")

	portal.BypassInterstitial(page, nil)

	assert.False(t, clicked)
}
