package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

type WindowInfo struct {
	Title   string
	Process string
}

type WindowQuery interface {
	ActiveWindow(ctx context.Context) (WindowInfo, error)
}

type WindowQueryFunc func(ctx context.Context) (WindowInfo, error)

func (f WindowQueryFunc) ActiveWindow(ctx context.Context) (WindowInfo, error) {
	return f(ctx)
}

// StaticWindow reports the same window every time. Used where no lookup
// tool is available.
func StaticWindow(title, process string) WindowQuery {
	return WindowQueryFunc(func(context.Context) (WindowInfo, error) {
		return WindowInfo{Title: title, Process: process}, nil
	})
}

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %s: %w", name, strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// SystemWindow looks up the focused window with xdotool on Linux and
// osascript on macOS. Other platforms get an unknown window.
func SystemWindow() WindowQuery {
	return &commandWindow{goos: runtime.GOOS, run: execRunner, readFile: os.ReadFile}
}

type commandWindow struct {
	goos     string
	run      Runner
	readFile func(string) ([]byte, error)
}

const frontAppScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set winTitle to ""
	try
		set winTitle to name of front window of frontApp
	end try
	return appName & linefeed & winTitle
end tell`

func (w *commandWindow) ActiveWindow(ctx context.Context) (WindowInfo, error) {
	switch w.goos {
	case "linux":
		return w.linux(ctx)
	case "darwin":
		out, err := w.run(ctx, "osascript", "-e", frontAppScript)
		if err != nil {
			return WindowInfo{}, err
		}
		process, title, _ := strings.Cut(strings.TrimRight(string(out), "\n"), "\n")
		return WindowInfo{Title: strings.TrimSpace(title), Process: strings.TrimSpace(process)}, nil
	default:
		return WindowInfo{}, nil
	}
}

func (w *commandWindow) linux(ctx context.Context) (WindowInfo, error) {
	out, err := w.run(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return WindowInfo{}, err
	}
	info := WindowInfo{Title: strings.TrimSpace(string(out))}

	pidOut, err := w.run(ctx, "xdotool", "getactivewindow", "getwindowpid")
	if err != nil {
		return info, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidOut)))
	if err != nil || pid <= 0 {
		return info, nil
	}
	comm, err := w.readFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err == nil {
		info.Process = strings.TrimSpace(string(comm))
	}
	return info, nil
}
