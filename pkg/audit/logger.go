package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger - приемник audit записей студии
type Logger interface {
	// Log - принять запись; в асинхронном режиме возврат не
	// означает что запись уже на диске
	Log(ctx context.Context, entry *Entry) error

	// Flush - дождаться записи накопленных буферов
	Flush() error

	// Close - дописать очередь и закрыть все приемники
	Close() error
}

// Appender - конечный приемник записей (файл, брокер)
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// LoggerConfig - поведение AuditLogger
type LoggerConfig struct {
	// AsyncMode - записывать через фоновую горутину
	AsyncMode bool

	// BufferSize - глубина очереди в асинхронном режиме
	BufferSize int

	// DefaultLevel - уровень детализации по умолчанию
	DefaultLevel Level

	// DefaultUser - подставляется в записи без пользователя
	DefaultUser string

	// DefaultSource - подставляется в записи без источника
	DefaultSource string

	// FlushInterval - период фонового flush, 0 отключает
	FlushInterval time.Duration

	// OnError - вызывается при ошибке записи в appender
	OnError func(error)
}

// DefaultConfig - асинхронный режим с очередью под нагрузку
// однопользовательской студии
func DefaultConfig() LoggerConfig {
	return LoggerConfig{
		AsyncMode:     true,
		BufferSize:    256,
		DefaultLevel:  LevelStandard,
		DefaultSource: "etlstudio",
	}
}

// SyncConfig - синхронный режим, каждая запись сразу в appenders
func SyncConfig() LoggerConfig {
	return LoggerConfig{
		DefaultLevel:  LevelStandard,
		DefaultSource: "etlstudio",
	}
}

// AuditLogger пишет записи в фиксированный набор appenders.
// Набор задается при создании и дальше не меняется, поэтому
// запись идет без блокировок.
type AuditLogger struct {
	appenders []Appender
	config    LoggerConfig

	queue  chan *Entry
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLogger - создать logger над набором appenders
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.DefaultLevel == 0 {
		config.DefaultLevel = LevelStandard
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &AuditLogger{
		appenders: appenders,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}

	if config.AsyncMode {
		l.queue = make(chan *Entry, config.BufferSize)
		l.wg.Add(1)
		go l.run()
	}
	if config.FlushInterval > 0 {
		l.wg.Add(1)
		go l.flushLoop()
	}
	return l
}

// Log - принять запись, дополнив ее умолчаниями конфигурации
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}
	if entry.ID == "" {
		entry.ID = generateID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.User == "" {
		entry.User = l.config.DefaultUser
	}
	if entry.Source == "" {
		entry.Source = l.config.DefaultSource
	}

	if !l.config.AsyncMode {
		return l.append(ctx, entry)
	}

	select {
	case l.queue <- entry:
		return nil
	case <-l.ctx.Done():
		return fmt.Errorf("audit logger is closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Очередь полна - пишем синхронно, запись терять нельзя
		return l.append(ctx, entry)
	}
}

// append - раздать запись всем appenders, вернуть первую ошибку
func (l *AuditLogger) append(ctx context.Context, entry *Entry) error {
	var firstErr error
	for _, a := range l.appenders {
		if err := a.Append(ctx, entry); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			l.reportError(fmt.Errorf("audit append: %w", err))
		}
	}
	return firstErr
}

// run - фоновая запись очереди
func (l *AuditLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case entry := <-l.queue:
			if err := l.append(context.Background(), entry); err != nil {
				l.reportError(err)
			}
		case <-l.ctx.Done():
			l.drain()
			return
		}
	}
}

// drain - дописать все что осталось в очереди
func (l *AuditLogger) drain() {
	for {
		select {
		case entry := <-l.queue:
			l.append(context.Background(), entry)
		default:
			return
		}
	}
}

// flushLoop - периодический flush appenders
func (l *AuditLogger) flushLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Flush()
		case <-l.ctx.Done():
			return
		}
	}
}

// Flush - сбросить буферы appenders, поддерживающих flush
func (l *AuditLogger) Flush() error {
	var firstErr error
	for _, a := range l.appenders {
		flusher, ok := a.(interface{ Flush() error })
		if !ok {
			continue
		}
		if err := flusher.Flush(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			l.reportError(fmt.Errorf("audit flush: %w", err))
		}
	}
	return firstErr
}

// Close - остановить прием, дописать очередь, закрыть appenders
func (l *AuditLogger) Close() error {
	l.cancel()
	l.wg.Wait()
	l.Flush()

	var firstErr error
	for _, a := range l.appenders {
		if err := a.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			l.reportError(fmt.Errorf("audit close: %w", err))
		}
	}
	return firstErr
}

func (l *AuditLogger) reportError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

// NullLogger - заглушка когда аудит не настроен
type NullLogger struct{}

// NewNullLogger - создать заглушку
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (*NullLogger) Log(ctx context.Context, entry *Entry) error { return nil }
func (*NullLogger) Flush() error                                { return nil }
func (*NullLogger) Close() error                                { return nil }
