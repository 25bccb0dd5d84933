// Package artifacts manages the per-run diagnostic outputs: screenshots,
// markup dumps and the tracing bundle. Paths are deterministic per run so
// repeated failing runs overwrite rather than accumulate.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"portalverify/browser"
)

// Fixed artifact names within a run directory.
const (
	FailScreenshotName = "fail.png"
	FailMarkupName     = "fail.html"
	TraceName          = "trace.zip"
)

// Logger matches the small logging surface the rest of the repo uses.
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Bundle lists the diagnostic files written for a failed run.
type Bundle struct {
	ScreenshotPath string
	MarkupPath     string
	TracePath      string
}

// Run is one test run's artifact directory.
type Run struct {
	Dir string
}

// NewRun ensures <root>/<id> exists. Creation is idempotent; an existing
// directory is reused.
func NewRun(root, id string) (*Run, error) {
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &Run{Dir: dir}, nil
}

func (r *Run) Path(name string) string { return filepath.Join(r.Dir, name) }

// TracePath is where the run's tracing bundle is finalized.
func (r *Run) TracePath() string { return r.Path(TraceName) }

// Screenshot captures a named per-step screenshot, best effort: a capture
// failure is logged and swallowed, never surfaced.
func (r *Run) Screenshot(page browser.Page, name string, logg Logger) {
	path := r.Path(name + ".png")
	if err := page.Screenshot(path); err != nil {
		logg.Errorf("screenshot %s failed: %v", name, err)
		return
	}
	logg.Printf("📸 Saved screenshot %s", path)
}

// CaptureFailure records the failure diagnostics: current URL to the log,
// a full-page screenshot and a full markup dump. Every step is best effort
// so that a diagnostic failure never masks the original error.
func (r *Run) CaptureFailure(page browser.Page, logg Logger) Bundle {
	bundle := Bundle{TracePath: r.TracePath()}

	logg.Printf("🔎 Failure at URL: %s", page.URL())

	shotPath := r.Path(FailScreenshotName)
	if err := page.Screenshot(shotPath); err != nil {
		logg.Errorf("failure screenshot failed: %v", err)
	} else {
		bundle.ScreenshotPath = shotPath
		logg.Printf("📸 Saved failure screenshot %s", shotPath)
	}

	markupPath := r.Path(FailMarkupName)
	html, err := page.Content()
	if err != nil {
		logg.Errorf("markup dump failed: %v", err)
		return bundle
	}
	if err := os.WriteFile(markupPath, []byte(html), 0644); err != nil {
		logg.Errorf("failed to write markup dump: %v", err)
		return bundle
	}
	bundle.MarkupPath = markupPath
	logg.Printf("📸 Saved markup dump %s (%d bytes)", markupPath, len(html))
	return bundle
}
