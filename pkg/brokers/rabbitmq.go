package brokers

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ реализует Publisher для RabbitMQ
type RabbitMQ struct {
	config  Config
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ создает RabbitMQ издателя
func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		if cfg.UseTLS {
			cfg.Port = 5671
		} else {
			cfg.Port = 5672
		}
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}

	return &RabbitMQ{config: cfg}, nil
}

// Connect устанавливает соединение с RabbitMQ и объявляет очередь
func (r *RabbitMQ) Connect(ctx context.Context) error {
	scheme := "amqp"
	if r.config.UseTLS {
		scheme = "amqps"
	}

	connStr := fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		scheme,
		r.config.User,
		r.config.Password,
		r.config.Host,
		r.config.Port,
		r.config.VHost,
	)

	var err error
	if r.config.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: r.config.Host,
			MinVersion: tls.VersionTLS12,
		}
		r.conn, err = amqp.DialTLS(connStr, tlsConfig)
	} else {
		r.conn, err = amqp.Dial(connStr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Параметры должны совпадать с существующей очередью
	_, err = r.channel.QueueDeclare(
		r.config.Queue,
		r.config.Durable,
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		r.channel.Close()
		r.conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	return nil
}

// Close закрывает соединение с RabbitMQ
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

// Publish отправляет событие в очередь
func (r *RabbitMQ) Publish(ctx context.Context, message []byte) error {
	if r.channel == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	err := r.channel.PublishWithContext(
		ctx,
		"",             // default exchange
		r.config.Queue, // routing key = имя очереди
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         message,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Ping проверяет доступность RabbitMQ
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	if r.channel == nil {
		return fmt.Errorf("channel not open")
	}
	return nil
}

// Type возвращает тип брокера
func (r *RabbitMQ) Type() string {
	return "rabbitmq"
}
