package browser

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

// DefaultDelay gives the listener time to come up before the page loads.
const DefaultDelay = 1500 * time.Millisecond

// Command returns the platform command that opens url in the default browser.
func Command(goos, url string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("browser: unsupported platform %q", goos)
	}
}

// Opener launches the browser. Start is swapped out in tests.
type Opener struct {
	GOOS   string
	Start  func(name string, args ...string) error
	Logger *slog.Logger
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Open opens url now.
func (o Opener) Open(url string) error {
	goos := o.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	start := o.Start
	if start == nil {
		start = startDetached
	}
	name, args, err := Command(goos, url)
	if err != nil {
		return err
	}
	return start(name, args...)
}

// OpenAfter opens url once after delay. Failures are logged.
// The returned timer can be stopped to cancel.
func (o Opener) OpenAfter(delay time.Duration, url string) *time.Timer {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return time.AfterFunc(delay, func() {
		if err := o.Open(url); err != nil {
			logger.Warn("failed to open browser", "url", url, "error", err)
			return
		}
		logger.Debug("opened browser", "url", url)
	})
}

// OpenAfter opens url with the default opener after delay.
func OpenAfter(delay time.Duration, url string) *time.Timer {
	return Opener{}.OpenAfter(delay, url)
}
