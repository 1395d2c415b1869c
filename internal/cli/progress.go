package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/opencode-ai/memer/internal/sources"
)

// renderStep reports a single timed step on stderr, e.g. "Rendering Drake... done (120ms)".
type renderStep struct {
	started time.Time
}

func startProgress(label string) *renderStep {
	if !progressEnabled() {
		return nil
	}
	fmt.Fprintf(stderr, "%s... ", label)
	return &renderStep{started: time.Now()}
}

func (s *renderStep) Done() {
	if s == nil {
		return
	}
	fmt.Fprintln(stderr, styles().Muted.Render(fmt.Sprintf("done (%s)", formatDuration(time.Since(s.started)))))
}

func (s *renderStep) Fail(err error) {
	if s == nil {
		return
	}
	msg := "failed"
	if err != nil {
		msg = fmt.Sprintf("failed: %v", err)
	}
	fmt.Fprintln(stderr, styles().Error.Render(msg))
}

// pullProgress returns the per-request callback for Puller.Pull, or nil when
// progress output is off. It prints the batch header immediately.
func pullProgress(total int) func(done, total int, req sources.Request) {
	if !progressEnabled() || total == 0 {
		return nil
	}
	fmt.Fprintln(stderr, styles().Title.Render(fmt.Sprintf("Pulling %d templates:", total)))
	started := time.Now()
	return func(done, total int, req sources.Request) {
		line := fmt.Sprintf("  [%d/%d] %s", done, total, req.Label())
		if done == total {
			line += styles().Muted.Render(fmt.Sprintf(" (%s)", formatDuration(time.Since(started))))
		}
		fmt.Fprintln(stderr, line)
	}
}

func progressEnabled() bool {
	if IsJSONOutput() {
		return false
	}
	for _, env := range []string{"MEMER_NO_PROGRESS", "NO_PROGRESS"} {
		if _, ok := os.LookupEnv(env); ok {
			return false
		}
	}
	return true
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
