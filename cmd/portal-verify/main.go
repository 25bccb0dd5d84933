package main

import (
	"flag"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"portalverify/artifacts"
	"portalverify/browser"
	"portalverify/config"
	"portalverify/portal"
)

func main() {
	checkNav := flag.Bool("check-nav", false, "verify the post-login navigation structure")
	headless := flag.Bool("headless", true, "run the browser headless")
	install := flag.Bool("install", false, "install the Playwright driver and chromium, then exit")
	flag.Parse()

	godotenv.Load()

	if *install {
		if err := browser.Install(); err != nil {
			log.Fatalf("❌ Playwright install failed: %v", err)
		}
		log.Println("✅ Playwright driver and chromium installed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	runID := uuid.New().String()
	run, err := artifacts.NewRun(cfg.ArtifactsDir, runID)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("📁 Artifacts for this run: %s", run.Dir)

	session, err := browser.Connect(*headless)
	if err != nil {
		log.Fatalf("❌ Browser launch failed: %v", err)
	}
	defer session.Close()

	page := session.Page()
	log.Printf("🌐 Navigating to %s", cfg.BaseURL)
	if err := page.Navigate(cfg.BaseURL); err != nil {
		log.Fatalf("❌ Failed to open %s: %v", cfg.BaseURL, err)
	}

	logg := &portal.SimpleLogger{}
	auth := portal.New(page, portal.Credentials{
		Username:    cfg.Username,
		Password:    cfg.Password,
		Replacement: cfg.NewPassword,
	}, portal.Options{
		BaseURL:        cfg.BaseURL,
		SignalDeadline: cfg.SignalTimeout,
		Artifacts:      run,
		Tracer:         session.Tracer(),
		Logger:         logg,
	})

	outcome, err := auth.Run()
	if err != nil {
		log.Printf("❌ Verification failed (%s): %v", outcome.State, err)
		os.Exit(1)
	}
	if outcome.Rotated {
		log.Println("🔁 Credential rotation was completed during login")
	}

	if *checkNav {
		if _, err := portal.VerifyNavigation(page, portal.DefaultNavigationItems, logg); err != nil {
			log.Printf("❌ Navigation verification failed: %v", err)
			os.Exit(1)
		}
	}

	log.Println("✅ Portal verification passed")
}
