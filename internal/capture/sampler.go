package capture

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/strrl/dayflow/internal/media"
)

const (
	ModeScreenshot = "screenshot"
	ModeVideo      = "video"

	DefaultChunkSeconds = 15
)

// ScreenshotSampler grabs a single frame with the platform screenshot tool,
// or with Command when set. "{path}" in Command is replaced with the target
// file; without it the path is appended.
type ScreenshotSampler struct {
	Command []string
	GOOS    string
	Run     Runner
}

func (s *ScreenshotSampler) Ext() string { return media.ExtJPEG }

func (s *ScreenshotSampler) Acquire(ctx context.Context, path string) (int64, error) {
	argv, err := s.argv(path)
	if err != nil {
		return 0, err
	}
	if _, err := s.runner()(ctx, argv[0], argv[1:]...); err != nil {
		return 0, fmt.Errorf("screenshot: %w", err)
	}
	return media.Size(path)
}

func (s *ScreenshotSampler) argv(path string) ([]string, error) {
	if len(s.Command) > 0 {
		return expand(s.Command, path), nil
	}
	switch goos(s.GOOS) {
	case "darwin":
		return []string{"screencapture", "-x", "-t", "jpg", path}, nil
	case "linux":
		return []string{"import", "-window", "root", "-quality", "85", path}, nil
	case "windows":
		return []string{"ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
			"-f", "gdigrab", "-i", "desktop", "-frames:v", "1", "-q:v", "3", path}, nil
	default:
		return nil, fmt.Errorf("no screenshot tool for %s; set capture.command", goos(s.GOOS))
	}
}

func (s *ScreenshotSampler) runner() Runner {
	if s.Run != nil {
		return s.Run
	}
	return execRunner
}

// VideoChunkSampler records ChunkSeconds of the screen at one frame per
// second with ffmpeg.
type VideoChunkSampler struct {
	ChunkSeconds int
	Command      []string
	GOOS         string
	Run          Runner
}

func (v *VideoChunkSampler) Ext() string { return media.ExtMP4 }

func (v *VideoChunkSampler) Acquire(ctx context.Context, path string) (int64, error) {
	argv, err := v.argv(path)
	if err != nil {
		return 0, err
	}
	run := v.Run
	if run == nil {
		run = execRunner
	}
	if _, err := run(ctx, argv[0], argv[1:]...); err != nil {
		return 0, fmt.Errorf("video chunk: %w", err)
	}
	return media.Size(path)
}

func (v *VideoChunkSampler) argv(path string) ([]string, error) {
	if len(v.Command) > 0 {
		return expand(v.Command, path), nil
	}

	var input []string
	switch goos(v.GOOS) {
	case "darwin":
		input = []string{"-f", "avfoundation", "-framerate", "1", "-i", "1:none"}
	case "linux":
		input = []string{"-f", "x11grab", "-framerate", "1", "-i", ":0.0"}
	case "windows":
		input = []string{"-f", "gdigrab", "-framerate", "1", "-i", "desktop"}
	default:
		return nil, fmt.Errorf("no screen recorder for %s; set capture.command", goos(v.GOOS))
	}

	seconds := v.ChunkSeconds
	if seconds <= 0 {
		seconds = DefaultChunkSeconds
	}
	argv := []string{"ffmpeg", "-hide_banner", "-loglevel", "error", "-y"}
	argv = append(argv, input...)
	argv = append(argv, "-t", strconv.Itoa(seconds), "-c:v", "libx264", "-pix_fmt", "yuv420p", path)
	return argv, nil
}

// NewSampler builds the sampler for mode. command, if non-empty, is split on
// whitespace and overrides the platform tool.
func NewSampler(mode, command string, chunkSeconds int) (Sampler, error) {
	argv := strings.Fields(command)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeScreenshot:
		return &ScreenshotSampler{Command: argv}, nil
	case ModeVideo:
		return &VideoChunkSampler{Command: argv, ChunkSeconds: chunkSeconds}, nil
	default:
		return nil, fmt.Errorf("unknown capture mode %q", mode)
	}
}

func expand(command []string, path string) []string {
	argv := make([]string, 0, len(command)+1)
	replaced := false
	for _, arg := range command {
		if strings.Contains(arg, "{path}") {
			arg = strings.ReplaceAll(arg, "{path}", path)
			replaced = true
		}
		argv = append(argv, arg)
	}
	if !replaced {
		argv = append(argv, path)
	}
	return argv
}

func goos(override string) string {
	if override != "" {
		return override
	}
	return runtime.GOOS
}
