// Package retry повторяет неудачные операции с настраиваемым backoff.
//
// Используется для транзиентных сетевых сбоев: публикация аудита
// в брокер, подключение к внешним системам. Постоянные ошибки
// помечаются через Permanent и не повторяются.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff - стратегия роста задержки между попытками
type Backoff string

const (
	BackoffConstant    Backoff = "constant"
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// Config - параметры повторов
type Config struct {
	// MaxAttempts - максимум попыток, включая первую
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay - задержка перед первым повтором
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay - потолок задержки
	MaxDelay time.Duration `yaml:"max_delay"`

	// Backoff - стратегия роста задержки
	Backoff Backoff `yaml:"backoff"`

	// Multiplier - множитель экспоненциального backoff
	Multiplier float64 `yaml:"multiplier"`

	// Jitter - доля случайного разброса задержки, 0.0 - 1.0
	Jitter float64 `yaml:"jitter"`

	// OnRetry - вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// DefaultConfig - 3 попытки с экспоненциальным backoff
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Backoff:      BackoffExponential,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Validate проверяет конфигурацию
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}
	switch c.Backoff {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.Backoff)
	}
	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}
	return nil
}

// Retryer выполняет операции с повторами
type Retryer struct {
	config Config
}

// New создает Retryer
func New(config Config) (*Retryer, error) {
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do выполняет fn, повторяя при транзиентных ошибках.
// Ошибки, помеченные Permanent, и отмена контекста прерывают повторы.
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, lastErr)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// delay вычисляет задержку перед повтором после attempt неудачных попыток
func (r *Retryer) delay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Backoff {
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	default:
		delay = r.config.InitialDelay
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		jitter := time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		delay += jitter
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}
	return delay
}

// permanentError помечает ошибку как не подлежащую повтору
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent оборачивает ошибку, исключая ее из повторов
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
