package artifacts_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalverify/artifacts"
	"portalverify/browser/fakedom"
)

type recordLogger struct {
	lines []string
}

func (l *recordLogger) Printf(format string, v ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordLogger) Errorf(format string, v ...interface{}) {
	l.lines = append(l.lines, "ERROR: "+fmt.Sprintf(format, v...))
}

func TestNewRunIsIdempotent(t *testing.T) {
	root := t.TempDir()

	first, err := artifacts.NewRun(root, "abc")
	require.NoError(t, err)
	second, err := artifacts.NewRun(root, "abc")
	require.NoError(t, err)

	assert.Equal(t, first.Dir, second.Dir)
	assert.Equal(t, filepath.Join(root, "abc"), first.Dir)
	assert.Equal(t, filepath.Join(root, "abc", artifacts.TraceName), first.TracePath())
}

func TestScreenshotFailureIsSwallowed(t *testing.T) {
	run, err := artifacts.NewRun(t.TempDir(), "run")
	require.NoError(t, err)

	page := fakedom.NewPage(fakedom.NewNode("body"))
	page.ScreenshotErr = errors.New("target closed")

	logg := &recordLogger{}
	run.Screenshot(page, "before_login", logg)

	assert.NoFileExists(t, run.Path("before_login.png"))
	require.NotEmpty(t, logg.lines)
	assert.Contains(t, logg.lines[0], "ERROR")
}

func TestCaptureFailureWritesBundle(t *testing.T) {
	run, err := artifacts.NewRun(t.TempDir(), "run")
	require.NoError(t, err)

	msg := fakedom.NewNode("div")
	msg.Text = "Authentication failed"
	page := fakedom.NewPage(fakedom.NewNode("body").Append(msg))
	page.Addr = "http://portal.example/login"

	bundle := run.CaptureFailure(page, &recordLogger{})

	assert.Equal(t, run.Path(artifacts.FailScreenshotName), bundle.ScreenshotPath)
	assert.Equal(t, run.Path(artifacts.FailMarkupName), bundle.MarkupPath)
	assert.Equal(t, run.TracePath(), bundle.TracePath)
	assert.FileExists(t, bundle.ScreenshotPath)
	assert.FileExists(t, bundle.MarkupPath)
}

func TestCaptureFailurePartialDiagnostics(t *testing.T) {
	run, err := artifacts.NewRun(t.TempDir(), "run")
	require.NoError(t, err)

	page := fakedom.NewPage(fakedom.NewNode("body"))
	page.ScreenshotErr = errors.New("target closed")

	// Screenshot fails; the markup dump must still be attempted.
	bundle := run.CaptureFailure(page, &recordLogger{})

	assert.Empty(t, bundle.ScreenshotPath)
	assert.FileExists(t, bundle.MarkupPath)
}
