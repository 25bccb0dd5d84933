package locator_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalverify/browser/fakedom"
	"portalverify/locator"
)

func TestFirstVisiblePicksFirstVisibleCandidate(t *testing.T) {
	hidden := fakedom.NewNode("input", "id", "loginPass")
	hidden.Hidden = true
	visible := fakedom.NewNode("input", "type", "password")
	page := fakedom.NewPage(fakedom.NewNode("body").Append(hidden, visible))

	el, ok := locator.FirstVisible(page, []string{
		`input#loginPass`,
		`input[type="password"]`,
	})
	require.True(t, ok)
	assert.Equal(t, visible, el.(*fakedom.Element).Node())
}

func TestFirstVisibleSkipsBrokenCandidate(t *testing.T) {
	field := fakedom.NewNode("input", "type", "password")
	page := fakedom.NewPage(fakedom.NewNode("body").Append(field))

	// The first candidate is not parseable by the driver; the search must
	// move on instead of failing.
	el, ok := locator.FirstVisible(page, []string{
		`input:not([hidden])`,
		`input[type="password"]`,
	})
	require.True(t, ok)
	assert.Equal(t, field, el.(*fakedom.Element).Node())
}

func TestFirstVisibleNothingVisible(t *testing.T) {
	hidden := fakedom.NewNode("input", "type", "password")
	hidden.Hidden = true
	page := fakedom.NewPage(fakedom.NewNode("body").Append(hidden))

	_, ok := locator.FirstVisible(page, []string{`input[type="password"]`})
	assert.False(t, ok)
}

func TestAnyScopePrefersPageOverFrames(t *testing.T) {
	inPage := fakedom.NewNode("input", "type", "password")
	page := fakedom.NewPage(fakedom.NewNode("body").Append(inPage))

	inFrame := fakedom.NewNode("input", "type", "password")
	page.Subframes = []*fakedom.Frame{
		fakedom.NewFrame("loginFrame", fakedom.NewNode("body").Append(inFrame)),
	}

	el, scope, ok := locator.FirstVisibleInAnyScope(page, []string{`input[type="password"]`})
	require.True(t, ok)
	assert.Equal(t, inPage, el.(*fakedom.Element).Node())
	assert.Same(t, page, scope)
}

func TestAnyScopeFindsInFrame(t *testing.T) {
	page := fakedom.NewPage(fakedom.NewNode("body"))
	inFrame := fakedom.NewNode("input", "type", "password")
	frame := fakedom.NewFrame("loginFrame", fakedom.NewNode("body").Append(inFrame))
	page.Subframes = []*fakedom.Frame{frame}

	el, scope, ok := locator.FirstVisibleInAnyScope(page, []string{`input[type="password"]`})
	require.True(t, ok)
	assert.Equal(t, inFrame, el.(*fakedom.Element).Node())
	assert.Equal(t, "frame loginFrame", scope.Describe())
}

func TestAnyScopeSkipsDetachedFrame(t *testing.T) {
	page := fakedom.NewPage(fakedom.NewNode("body"))
	detached := fakedom.NewFrame("stale", fakedom.NewNode("body"))
	detached.Detached = true
	inFrame := fakedom.NewNode("input", "type", "password")
	page.Subframes = []*fakedom.Frame{
		detached,
		fakedom.NewFrame("loginFrame", fakedom.NewNode("body").Append(inFrame)),
	}

	el, _, ok := locator.FirstVisibleInAnyScope(page, []string{`input[type="password"]`})
	require.True(t, ok)
	assert.Equal(t, inFrame, el.(*fakedom.Element).Node())
}

func TestWaitVisibleReportsScopeAndCandidates(t *testing.T) {
	page := fakedom.NewPage(fakedom.NewNode("body"))

	_, err := locator.WaitVisible(page, "page", []string{`input#loginPass`}, 0)
	require.Error(t, err)

	var notFound *locator.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "page", notFound.Scope)
	assert.Equal(t, []string{`input#loginPass`}, notFound.Candidates)
}

func TestWaitVisibleInAnyScopeTimesOut(t *testing.T) {
	page := fakedom.NewPage(fakedom.NewNode("body"))

	start := time.Now()
	_, _, err := locator.WaitVisibleInAnyScope(page, []string{`input#loginPass`}, 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "zero deadline must be a single pass")
}

func TestPollUntilProbesAtLeastOnce(t *testing.T) {
	calls := 0
	hit := locator.PollUntil(0, time.Millisecond, func() bool {
		calls++
		return true
	})
	assert.True(t, hit)
	assert.Equal(t, 1, calls)
}

func TestPollUntilSeesLateSuccess(t *testing.T) {
	calls := 0
	hit := locator.PollUntil(500*time.Millisecond, time.Millisecond, func() bool {
		calls++
		return calls >= 3
	})
	assert.True(t, hit)
	assert.Equal(t, 3, calls)
}

func TestFirstVisibleWithTextMatchesLabelAndValue(t *testing.T) {
	link := fakedom.NewNode("a")
	link.Text = "Sign In to Portal"
	input := fakedom.NewNode("input", "type", "submit", "value", "LOGIN")
	page := fakedom.NewPage(fakedom.NewNode("body").Append(link, input))

	el, ok := locator.FirstVisibleWithText(page, []string{"a"}, []string{"sign in"})
	require.True(t, ok)
	assert.Equal(t, link, el.(*fakedom.Element).Node())

	el, ok = locator.FirstVisibleWithText(page, []string{`input[type="submit"]`}, []string{"login"})
	require.True(t, ok)
	assert.Equal(t, input, el.(*fakedom.Element).Node())
}

func TestFirstVisibleWithTextIgnoresHidden(t *testing.T) {
	hidden := fakedom.NewNode("button")
	hidden.Text = "Continue"
	hidden.Hidden = true
	page := fakedom.NewPage(fakedom.NewNode("body").Append(hidden))

	_, ok := locator.FirstVisibleWithText(page, []string{"button"}, []string{"continue"})
	assert.False(t, ok)
}
