package judgment

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"story-engine/internal/story"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RemoteClassifier отправляет готовый промпт модели и возвращает сырой текст ответа.
type RemoteClassifier interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config - параметры цепочки удаленный судья -> локальные правила.
type Config struct {
	Timeout            time.Duration // предел одного удаленного вызова
	BreakerMaxFailures uint32        // подряд идущих сбоев до размыкания
	BreakerCooldown    time.Duration // сколько breaker остается открытым
}

const (
	DefaultTimeout            = 15 * time.Second
	DefaultBreakerMaxFailures = 5
	DefaultBreakerCooldown    = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = DefaultBreakerMaxFailures
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = DefaultBreakerCooldown
	}
	return c
}

// Engine оценивает ответы: сначала удаленный судья, при любом его сбое локальные шаблоны.
// Classify никогда не возвращает ошибку.
type Engine struct {
	local   *LocalClassifier
	remote  RemoteClassifier
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *Metrics
	logger  *zap.Logger

	remoteEnabled atomic.Bool
}

// NewEngine собирает судью. remote может быть nil, тогда работают только локальные правила.
func NewEngine(local *LocalClassifier, remote RemoteClassifier, cfg Config, metrics *Metrics, logger *zap.Logger) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		local:   local,
		remote:  remote,
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger.Named("JudgmentEngine"),
	}
	if remote != nil {
		e.breaker = newBreaker(remote.Name(), cfg, e.logger)
		e.remoteEnabled.Store(true)
	}
	return e
}

// SetRemoteEnabled переключает режим "только локальные правила" без перезапуска.
func (e *Engine) SetRemoteEnabled(enabled bool) {
	e.remoteEnabled.Store(enabled && e.remote != nil)
}

func (e *Engine) RemoteEnabled() bool { return e.remoteEnabled.Load() }

// Classify оценивает ответ игрока на испытание.
func (e *Engine) Classify(ctx context.Context, c *story.Challenge, input string) Result {
	if !e.RemoteEnabled() {
		return e.ClassifyLocal(c, input)
	}

	res, err := e.classifyRemote(ctx, c, input)
	if err == nil {
		e.metrics.observeVerdict(res)
		return res
	}

	warning := WarningRemoteFailed
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		warning = WarningRemotePaused
	}
	e.logger.Warn("Remote judgment failed, falling back to local rules",
		zap.String("backend", e.remote.Name()),
		zap.Error(err),
	)

	res = e.local.Classify(c, input)
	res.Warning = warning
	e.metrics.observeVerdict(res)
	return res
}

// ClassifyLocal применяет только шаблоны испытания.
func (e *Engine) ClassifyLocal(c *story.Challenge, input string) Result {
	res := e.local.Classify(c, input)
	e.metrics.observeVerdict(res)
	return res
}

func (e *Engine) classifyRemote(ctx context.Context, c *story.Challenge, input string) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("%w: no challenge", ErrRemoteUnavailable)
	}
	backend := e.remote.Name()
	prompt := BuildPrompt(c, input)

	out, err := e.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		start := time.Now()
		raw, err := e.remote.Complete(callCtx, prompt)
		e.metrics.observeLatency(backend, time.Since(start))
		if err != nil {
			return nil, err
		}
		return parseVerdict(raw)
	})
	if err != nil {
		e.metrics.observeFailure(backend, failureReason(err))
		return Result{}, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}

	res := out.(Result)
	res.Provenance = ProvenanceRemote
	return res, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrMalformedReply):
		return "malformed"
	default:
		return "transport"
	}
}
