package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser shows url in a browser so the user can approve access.
//
// $BROWSER wins when set (useful over SSH or in WSL); otherwise the platform opener is used.
// The caller falls back to printing the URL when this fails.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(runtime.GOOS, os.Getenv("BROWSER"), url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func browserCommand(goos, override, url string) (*exec.Cmd, error) {
	if fields := strings.Fields(override); len(fields) > 0 {
		return exec.Command(fields[0], append(fields[1:], url)...), nil
	}

	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: no browser opener for %s", ErrNotImplemented, goos)
	}
}
