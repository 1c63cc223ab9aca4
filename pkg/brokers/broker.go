// Package brokers публикует события аудита во внешние очереди сообщений.
//
// Поддерживаются Apache Kafka и RabbitMQ. Публикация односторонняя:
// студия пишет события, читают их внешние потребители.
package brokers

import (
	"context"
	"fmt"
)

// Publisher - издатель событий аудита
type Publisher interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Close закрывает соединение с брокером
	Close() error

	// Publish отправляет событие (JSON тело) в очередь/топик
	Publish(ctx context.Context, message []byte) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// Type возвращает тип брокера (kafka, rabbitmq)
	Type() string
}

// Config содержит параметры подключения к брокеру
type Config struct {
	Type string `yaml:"type"` // kafka, rabbitmq

	// RabbitMQ
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Queue    string `yaml:"queue"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls"`
	Durable  bool   `yaml:"durable"`

	// Kafka
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// New создает Publisher на основе конфигурации
func New(cfg Config) (Publisher, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafka(cfg)
	case "rabbitmq":
		return NewRabbitMQ(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: kafka, rabbitmq)", cfg.Type)
	}
}
