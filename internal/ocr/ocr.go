// Package ocr extracts text from image attachments through an external
// engine. Only one scan runs at a time.
package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/metrics"
	"github.com/Joseda-hg/lazyjournal/internal/model"
)

var ErrBusy = errors.New("a text scan is already running")

// DefaultLanguages is the combined Korean and English recognition mode.
const DefaultLanguages = "kor+eng"

// Engine recognizes text in img. progress takes values in 0..100.
type Engine interface {
	Recognize(ctx context.Context, img model.Image, languages string, progress func(int)) (string, error)
}

type Scanner struct {
	engine    Engine
	languages string
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	scanning bool
	progress int
}

func NewScanner(engine Engine, languages string, logger *zap.Logger) *Scanner {
	if languages == "" {
		languages = DefaultLanguages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		engine:    engine,
		languages: languages,
		logger:    logger,
		metrics:   metrics.Default(),
	}
}

// Status reports whether a scan is running and its last progress value.
func (s *Scanner) Status() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning, s.progress
}

// Scan runs one recognition. Engine failures yield "" with a nil error;
// ErrBusy is returned when another scan is in flight.
func (s *Scanner) Scan(ctx context.Context, img model.Image, onProgress func(int)) (string, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		s.metrics.OCRScans.WithLabelValues("busy").Inc()
		return "", ErrBusy
	}
	s.scanning = true
	s.progress = 0
	s.mu.Unlock()

	report := func(value int) {
		value = max(0, min(100, value))
		s.mu.Lock()
		if value < s.progress {
			value = s.progress
		}
		s.progress = value
		s.mu.Unlock()
		if onProgress != nil {
			onProgress(value)
		}
	}

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	report(0)
	if s.engine == nil {
		s.logger.Warn("text scan requested without an OCR engine")
		s.metrics.OCRScans.WithLabelValues("failed").Inc()
		report(100)
		return "", nil
	}

	text, err := s.engine.Recognize(ctx, img, s.languages, report)
	report(100)
	if err != nil {
		s.logger.Warn("text scan failed", zap.Error(err), zap.Int("bytes", img.Size()))
		s.metrics.OCRScans.WithLabelValues("failed").Inc()
		return "", nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.OCRScans.WithLabelValues("empty").Inc()
	} else {
		s.metrics.OCRScans.WithLabelValues("text").Inc()
	}
	return text, nil
}
