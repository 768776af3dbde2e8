// Package voice wraps an external speech recognizer behind a two-state
// machine: Idle, or Listening for exactly one form field.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/metrics"
)

var ErrUnavailable = errors.New("speech recognition is not available")

type Target string

const (
	TargetNone        Target = ""
	TargetTitle       Target = "title"
	TargetDescription Target = "description"
)

// Result is what a recognizer hands back for one single-shot session.
type Result struct {
	Transcript string
}

// Recognizer listens once and returns at most one transcript. It must
// return promptly when ctx is cancelled.
type Recognizer interface {
	Recognize(ctx context.Context, locale string) (Result, error)
}

type Capture struct {
	recognizer Recognizer
	locale     string
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	target   Target
	session  uint64
	cancel   context.CancelFunc
	onResult func(Target, string)
}

func New(recognizer Recognizer, locale string, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locale == "" {
		locale = "ko-KR"
	}
	return &Capture{
		recognizer: recognizer,
		locale:     locale,
		logger:     logger,
		metrics:    metrics.Default(),
	}
}

// OnResult sets the callback for non-empty transcripts. It runs on the
// recognizer goroutine.
func (c *Capture) OnResult(fn func(Target, string)) {
	c.mu.Lock()
	c.onResult = fn
	c.mu.Unlock()
}

// Listening reports the field being dictated into, or TargetNone when idle.
func (c *Capture) Listening() Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Toggle starts listening for target, stops when target is already being
// listened for, and switches when another field is active.
func (c *Capture) Toggle(ctx context.Context, target Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target != TargetNone {
		same := c.target == target
		c.stopLocked()
		c.metrics.VoiceSessions.WithLabelValues("cancelled").Inc()
		if same {
			return nil
		}
	}

	if c.recognizer == nil {
		c.logger.Warn("voice capture requested without a recognizer")
		c.metrics.VoiceSessions.WithLabelValues("unavailable").Inc()
		return ErrUnavailable
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	c.session++
	c.target = target
	c.cancel = cancel
	go c.listen(sessionCtx, c.session, target)
	return nil
}

// Stop cancels any active session without producing text.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != TargetNone {
		c.stopLocked()
	}
}

func (c *Capture) stopLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.target = TargetNone
	c.session++
}

func (c *Capture) listen(ctx context.Context, session uint64, target Target) {
	result, err := c.recognizer.Recognize(ctx, c.locale)

	c.mu.Lock()
	if c.session != session {
		// superseded or cancelled; the text is dropped
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.target = TargetNone
	onResult := c.onResult
	c.mu.Unlock()

	logger := c.logger.With(zap.String("target", string(target)))
	transcript := strings.TrimSpace(result.Transcript)
	switch {
	case errors.Is(err, ErrUnavailable):
		logger.Warn("speech recognizer unavailable", zap.Error(err))
		c.metrics.VoiceSessions.WithLabelValues("unavailable").Inc()
	case err != nil:
		logger.Warn("speech recognition failed", zap.Error(err))
		c.metrics.VoiceSessions.WithLabelValues("failed").Inc()
	case transcript == "":
		logger.Debug("speech recognition ended without transcript")
		c.metrics.VoiceSessions.WithLabelValues("empty").Inc()
	default:
		c.metrics.VoiceSessions.WithLabelValues("transcript").Inc()
		if onResult != nil {
			onResult(target, transcript)
		}
	}
}

// Append joins transcript onto field with a single space.
func Append(field, transcript string) string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return field
	}
	if field == "" {
		return transcript
	}
	return field + " " + transcript
}
