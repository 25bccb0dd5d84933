package main

import (
	"fmt"
	"os"

	"portalverify/artifacts"
	"portalverify/browser"
	"portalverify/config"
	"portalverify/portal"
)

// runResult is what one browser run produces, independent of job
// bookkeeping.
type runResult struct {
	Outcome   portal.Outcome
	Artifacts []string
	Err       error
}

// runVerification owns a full browser lifecycle for one job: launch,
// navigate, authenticate, optionally walk the post-login navigation, and
// tear down. Request fields override the environment defaults.
func runVerification(cfg *config.Config, job *Job, logg portal.Logger) runResult {
	req := job.Request
	baseURL := firstNonEmpty(req.BaseURL, cfg.BaseURL)
	username := firstNonEmpty(req.Username, cfg.Username)
	password := firstNonEmpty(req.Password, cfg.Password)
	replacement := firstNonEmpty(req.NewPassword, cfg.NewPassword)

	run, err := artifacts.NewRun(cfg.ArtifactsDir, job.ID)
	if err != nil {
		return runResult{Err: err}
	}

	session, err := browser.Connect(true)
	if err != nil {
		return runResult{Err: fmt.Errorf("browser launch failed: %w", err)}
	}
	defer session.Close()

	page := session.Page()
	logg.Printf("🌐 Navigating to %s", baseURL)
	if err := page.Navigate(baseURL); err != nil {
		return runResult{Err: fmt.Errorf("failed to open %s: %w", baseURL, err)}
	}

	auth := portal.New(page, portal.Credentials{
		Username:    username,
		Password:    password,
		Replacement: replacement,
	}, portal.Options{
		BaseURL:        baseURL,
		SignalDeadline: cfg.SignalTimeout,
		Artifacts:      run,
		Tracer:         session.Tracer(),
		Logger:         logg,
	})

	outcome, err := auth.Run()
	result := runResult{Outcome: outcome, Artifacts: listArtifacts(run), Err: err}
	if err != nil {
		return result
	}

	if req.CheckNavigation {
		logg.Printf("🧭 Verifying post-login navigation...")
		if _, err := portal.VerifyNavigation(page, portal.DefaultNavigationItems, logg); err != nil {
			result.Err = err
			result.Artifacts = listArtifacts(run)
			return result
		}
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func listArtifacts(run *artifacts.Run) []string {
	var out []string
	for _, name := range []string{
		"before_login.png",
		"after_login.png",
		artifacts.FailScreenshotName,
		artifacts.FailMarkupName,
		artifacts.TraceName,
	} {
		path := run.Path(name)
		if fileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
