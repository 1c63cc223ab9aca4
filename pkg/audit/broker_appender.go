package audit

import (
	"context"
	"fmt"

	"github.com/DukeAche/Etl-studio/pkg/brokers"
	"github.com/DukeAche/Etl-studio/pkg/retry"
)

// BrokerAppender публикует audit записи во внешний брокер сообщений.
// Запись сериализуется в JSON и уходит одним сообщением; транзиентные
// сбои публикации повторяются с backoff.
type BrokerAppender struct {
	publisher brokers.Publisher
	level     Level
	retryer   *retry.Retryer
}

// NewBrokerAppender создает appender поверх подключенного издателя
func NewBrokerAppender(publisher brokers.Publisher, level Level) *BrokerAppender {
	retryer, _ := retry.New(retry.DefaultConfig())
	return &BrokerAppender{
		publisher: publisher,
		level:     level,
		retryer:   retryer,
	}
}

// Append публикует entry в брокер
func (ba *BrokerAppender) Append(ctx context.Context, entry *Entry) error {
	data, err := entry.FilterByLevel(ba.level).ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	err = ba.retryer.Do(ctx, func(ctx context.Context) error {
		return ba.publisher.Publish(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("failed to publish entry: %w", err)
	}
	return nil
}

// Close закрывает соединение с брокером
func (ba *BrokerAppender) Close() error {
	return ba.publisher.Close()
}
