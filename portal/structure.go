package portal

import (
	"fmt"
	"strings"
	"time"

	"portalverify/browser"
	"portalverify/locator"
)

// NavigationItem is one expected entry of the post-login UI: either a
// selector list, a visible-text label, or both (selectors are tried first).
type NavigationItem struct {
	Name      string
	Selectors []string
	Label     string
}

// NavigationReport records where (or whether) one item was found.
type NavigationReport struct {
	Name  string
	Found bool
	Scope string
}

// DefaultNavigationItems describes the menu and tree entries an
// administrator account is expected to see after login.
var DefaultNavigationItems = []NavigationItem{
	{Name: "main menu", Selectors: []string{`[id*="mainMenu"]`, "nav"}},
	{Name: "administration menu", Label: "administration"},
	{Name: "configuration tree", Selectors: []string{`[id*="configTree"]`, `[class*="tree"]`}},
	{Name: "user management entry", Label: "users"},
}

const navigationRetryDeadline = 5 * time.Second

var navigationTextSelectors = []string{"a", "li", "span", "button"}

// VerifyNavigation checks each expected item across the page and all
// frames, with one patient retry for items that are slow to render. It
// returns the full report plus an error naming every missing item.
func VerifyNavigation(page browser.Page, items []NavigationItem, logg Logger) ([]NavigationReport, error) {
	if logg == nil {
		logg = &SimpleLogger{}
	}

	reports := make([]NavigationReport, 0, len(items))
	var missing []string

	for _, item := range items {
		scopeDesc, found := findNavigationItem(page, item)
		if !found {
			// One patient retry: menus render lazily on some deployments.
			found = locator.PollUntil(navigationRetryDeadline, locator.DefaultInterval, func() bool {
				scopeDesc, found = findNavigationItem(page, item)
				return found
			})
		}
		if found {
			logg.Printf("      ✅ Found %s in %s", item.Name, scopeDesc)
		} else {
			logg.Printf("      ❌ Missing %s", item.Name)
			missing = append(missing, item.Name)
		}
		reports = append(reports, NavigationReport{Name: item.Name, Found: found, Scope: scopeDesc})
	}

	if len(missing) > 0 {
		return reports, fmt.Errorf("expected navigation items not found: %s", strings.Join(missing, ", "))
	}
	return reports, nil
}

func findNavigationItem(page browser.Page, item NavigationItem) (string, bool) {
	if len(item.Selectors) > 0 {
		if _, scope, ok := locator.FirstVisibleInAnyScope(page, item.Selectors); ok {
			return scope.Describe(), true
		}
	}
	if item.Label != "" {
		for _, scope := range locator.Scopes(page) {
			if _, ok := locator.FirstVisibleWithText(scope, navigationTextSelectors, []string{item.Label}); ok {
				return scope.Describe(), true
			}
		}
	}
	return "", false
}
