package browser

import (
	"fmt"
	"os"

	pw "github.com/playwright-community/playwright-go"
)

// Install fetches the Playwright driver and the chromium browser. Safe to
// call repeatedly; only chromium is installed to keep small hosts happy.
func Install() error {
	return pw.Install(&pw.RunOptions{Browsers: []string{"chromium"}})
}

// Session owns one Playwright browser context and the single page driven by
// a verification run. No two runs may share a Session.
type Session struct {
	pw      *pw.Playwright
	browser pw.Browser
	context pw.BrowserContext
	page    pw.Page
}

// Connect starts Playwright and launches a chromium page. The browser binary
// is taken from PLAYWRIGHT_EXECUTABLE_PATH when set, otherwise from the
// usual chromium install locations.
func Connect(headless bool) (*Session, error) {
	instance, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start Playwright: %w", err)
	}

	executablePath := os.Getenv("PLAYWRIGHT_EXECUTABLE_PATH")
	if executablePath == "" {
		commonPaths := []string{
			"/usr/bin/chromium",
			"/usr/bin/google-chrome",
			"/bin/google-chrome",
			"/usr/bin/chromium-browser",
		}
		for _, p := range commonPaths {
			if _, err := os.Stat(p); err == nil {
				executablePath = p
				break
			}
		}
	}

	launchOptions := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(headless),
	}
	if executablePath != "" {
		launchOptions.ExecutablePath = &executablePath
	}

	b, err := instance.Chromium.Launch(launchOptions)
	if err != nil {
		instance.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ctx, err := b.NewContext()
	if err != nil {
		b.Close()
		instance.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		ctx.Close()
		b.Close()
		instance.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{pw: instance, browser: b, context: ctx, page: page}, nil
}

// Page returns the session's page behind the driver abstraction.
func (s *Session) Page() Page {
	return &pwPage{page: s.page}
}

// Tracer returns the context-wide tracing session.
func (s *Session) Tracer() Tracer {
	return &pwTracer{context: s.context}
}

func (s *Session) Close() {
	s.page.Close()
	s.context.Close()
	s.browser.Close()
	s.pw.Stop()
}

// pwScope adapts either the page or one of its frames. Only one of the two
// fields is set.
type pwScope struct {
	page  pw.Page
	frame pw.Frame
}

func (s *pwScope) locate(selector string) pw.Locator {
	if s.frame != nil {
		return s.frame.Locator(selector)
	}
	return s.page.Locator(selector)
}

func (s *pwScope) Query(selector string) (Element, error) {
	loc := s.locate(selector).First()
	return &pwElement{loc: loc}, nil
}

func (s *pwScope) QueryAll(selector string) ([]Element, error) {
	all, err := s.locate(selector).All()
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(all))
	for _, loc := range all {
		elements = append(elements, &pwElement{loc: loc})
	}
	return elements, nil
}

func (s *pwScope) Describe() string {
	if s.frame != nil {
		if name := s.frame.Name(); name != "" {
			return fmt.Sprintf("frame %q (%s)", name, s.frame.URL())
		}
		return fmt.Sprintf("frame %s", s.frame.URL())
	}
	return s.page.URL()
}

type pwPage struct {
	page pw.Page
}

func (p *pwPage) Query(selector string) (Element, error) {
	return (&pwScope{page: p.page}).Query(selector)
}

func (p *pwPage) QueryAll(selector string) ([]Element, error) {
	return (&pwScope{page: p.page}).QueryAll(selector)
}

func (p *pwPage) Describe() string { return p.page.URL() }

func (p *pwPage) Navigate(url string) error {
	_, err := p.page.Goto(url, pw.PageGotoOptions{WaitUntil: pw.WaitUntilStateDomcontentloaded})
	return err
}

func (p *pwPage) Frames() []Scope {
	main := p.page.MainFrame()
	var scopes []Scope
	for _, f := range p.page.Frames() {
		if f == main {
			continue
		}
		scopes = append(scopes, &pwScope{frame: f})
	}
	return scopes
}

func (p *pwPage) Title() (string, error) { return p.page.Title() }

func (p *pwPage) BodyText() (string, error) { return p.page.InnerText("body") }

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) WaitReady() error {
	return p.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State: pw.LoadStateDomcontentloaded,
	})
}

func (p *pwPage) Content() (string, error) { return p.page.Content() }

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(pw.PageScreenshotOptions{
		Path:     pw.String(path),
		FullPage: pw.Bool(true),
	})
	return err
}

type pwElement struct {
	loc pw.Locator
}

func (e *pwElement) Query(selector string) (Element, error) {
	return &pwElement{loc: e.loc.Locator(selector).First()}, nil
}

func (e *pwElement) QueryAll(selector string) ([]Element, error) {
	all, err := e.loc.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(all))
	for _, loc := range all {
		elements = append(elements, &pwElement{loc: loc})
	}
	return elements, nil
}

func (e *pwElement) Visible() (bool, error) { return e.loc.IsVisible() }

func (e *pwElement) Click() error { return e.loc.Click() }

func (e *pwElement) Fill(value string) error { return e.loc.Fill(value) }

func (e *pwElement) Value() (string, error) { return e.loc.InputValue() }

func (e *pwElement) Text() (string, error) { return e.loc.TextContent() }

func (e *pwElement) Attr(name string) (string, error) { return e.loc.GetAttribute(name) }

func (e *pwElement) EnclosingForm() (Element, error) {
	form := e.loc.Locator("xpath=ancestor::form[1]")
	count, err := form.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return &pwElement{loc: form.First()}, nil
}

type pwTracer struct {
	context pw.BrowserContext
}

func (t *pwTracer) Start() error {
	return t.context.Tracing().Start(pw.TracingStartOptions{
		Screenshots: pw.Bool(true),
		Snapshots:   pw.Bool(true),
	})
}

func (t *pwTracer) Stop(path string) error {
	return t.context.Tracing().Stop(path)
}
