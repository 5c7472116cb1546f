// Package generativefallback answers questions the FAQ catalog does not cover
// by delegating to a text generation service.
package generativefallback

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/common/metrics"
)

var (
	ErrLLMTimeout          = errors.New("LLM_TIMEOUT")
	ErrLLMGenerationFailed = errors.New("LLM_GENERATION_FAILED")
)

const DefaultTimeout = 30 * time.Second

// Generator is a text generation backend.
type Generator interface {
	// CheckAvailability reports whether the service is reachable and serves
	// the configured model.
	CheckAvailability(ctx context.Context) bool
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Model        string
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

// Fallback wraps a Generator whose availability was established once at
// construction. It never returns an error: every failure is reported as
// ok == false.
type Fallback struct {
	generator Generator
	available bool
	probeErr  error
	timeout   time.Duration
	logger    logger.Logger
}

// New probes generator once. A nil generator yields a permanently
// unavailable fallback.
func New(ctx context.Context, generator Generator, config Config, log logger.Logger) *Fallback {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 5 * time.Second
	}

	f := &Fallback{
		generator: generator,
		timeout:   config.Timeout,
		logger:    log.With(map[string]interface{}{"component": "generative-fallback"}),
	}
	if generator == nil {
		f.probeErr = apperrors.NewLLMUnavailableError(config.Model)
		f.logger.Info("generative fallback disabled", nil)
		return f
	}

	probeCtx, cancel := context.WithTimeout(ctx, config.ProbeTimeout)
	defer cancel()
	f.available = generator.CheckAvailability(probeCtx)
	if !f.available {
		f.probeErr = apperrors.NewLLMUnavailableError(config.Model)
	}

	f.logger.Info("generative fallback probed", map[string]interface{}{
		"available": f.available,
	})
	return f
}

// Available reports the result of the startup probe.
func (f *Fallback) Available() bool {
	return f.available
}

// Err is the LLM_UNAVAILABLE error behind a failed or skipped probe, nil
// when the service is available.
func (f *Fallback) Err() error {
	return f.probeErr
}

// Reply generates an answer for message. ok is false when the service is
// unavailable, fails, times out or returns only whitespace.
func (f *Fallback) Reply(ctx context.Context, message string) (reply string, ok bool) {
	if !f.available {
		metrics.GenerativeCallsTotal.WithLabelValues("unavailable").Inc()
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	text, err := f.generator.Generate(ctx, message)
	if err != nil {
		stdErr := f.classify(ctx, err)
		outcome := "error"
		if stdErr.Code == apperrors.ErrCodeLLMTimeout {
			outcome = "timeout"
		}
		metrics.GenerativeCallsTotal.WithLabelValues(outcome).Inc()
		f.logger.Warn("generation failed", map[string]interface{}{
			"errorCode":  string(stdErr.Code),
			"error":      stdErr.Details,
			"durationMs": time.Since(start).Milliseconds(),
		})
		return "", false
	}

	if strings.TrimSpace(text) == "" {
		metrics.GenerativeCallsTotal.WithLabelValues("empty").Inc()
		return "", false
	}

	metrics.GenerativeCallsTotal.WithLabelValues("success").Inc()
	f.logger.Debug("generated reply", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
		"length":     len(text),
	})
	return text, true
}

// classify maps a generator failure onto LLM_TIMEOUT when the call ran out of
// time and LLM_GENERATION_FAILED otherwise.
func (f *Fallback) classify(ctx context.Context, err error) *apperrors.StandardError {
	if errors.Is(err, ErrLLMTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewLLMTimeoutError(f.timeout)
	}
	return apperrors.NewLLMGenerationFailedError(err)
}
