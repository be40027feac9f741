package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/ndskl/pkg/observability"
)

// errSpinnerStopped is the cancel cause set by Stop.
var errSpinnerStopped = errors.New("spinner stopped")

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stageSpinner animates a progress line on w while a conversion runs. It is
// registered as the pipeline hooks, so the line always names the stage the
// runner is in.
type stageSpinner struct {
	w     io.Writer
	input string

	mu     sync.Mutex
	stage  string
	width  int
	ctx    context.Context
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopped  chan struct{}
}

// newStageSpinner creates a spinner for converting input.
func newStageSpinner(w io.Writer, input string) *stageSpinner {
	return &stageSpinner{
		w:       w,
		input:   input,
		stage:   fmt.Sprintf("Reading %s", input),
		stopped: make(chan struct{}),
	}
}

// Start animates until Stop is called or ctx is done.
func (s *stageSpinner) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancelCause(ctx)
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.mu.Lock()
				line := styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]) + " " + StyleDim.Render(s.stage)
				// Pad over the remains of a longer previous stage.
				if pad := s.width - len(s.stage); pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				s.width = len(s.stage)
				fmt.Fprint(s.w, "\r"+line)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation and clears the line. It may be called more than
// once and before Start.
func (s *stageSpinner) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			close(s.stopped)
			return
		}
		s.cancel(errSpinnerStopped)
	})
	<-s.stopped
}

// Cancelled reports whether the context given to Start ended before Stop.
func (s *stageSpinner) Cancelled() bool {
	return s.ctx != nil && s.ctx.Err() != nil && !errors.Is(context.Cause(s.ctx), errSpinnerStopped)
}

// Stage returns the current progress line text.
func (s *stageSpinner) Stage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *stageSpinner) setStage(format string, args ...any) {
	s.mu.Lock()
	s.stage = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

func (s *stageSpinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.stage))+2))
}

func (s *stageSpinner) OnParseStart(_ context.Context, input string) {
	s.setStage("Parsing %s", input)
}

func (s *stageSpinner) OnParseComplete(_ context.Context, _ string, stats observability.SkeletonStats, _ time.Duration, err error) {
	if err != nil {
		return
	}
	s.setStage("Flattening %d connections and %d sampling points", stats.Connections, stats.Samples)
}

func (s *stageSpinner) OnFlatten(_ context.Context, stats observability.SkeletonStats, _ time.Duration) {
	s.setStage("Laid out %d critical points and %d filaments", stats.CriticalPoints, stats.Filaments)
}

func (s *stageSpinner) OnWriteStart(_ context.Context, target, path string) {
	s.setStage("Writing %s %s", target, path)
}

func (s *stageSpinner) OnWriteComplete(_ context.Context, target, path string, _ time.Duration, err error) {
	if err != nil {
		return
	}
	s.setStage("Wrote %s %s", target, path)
}

var _ observability.PipelineHooks = (*stageSpinner)(nil)
