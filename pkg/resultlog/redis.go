// Package resultlog публикует сводки операций сессии в Redis.
//
// Внешние наблюдатели (оркестратор, мониторинг) получают состояние
// либо опросом ключа, либо подпиской на канал событий.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DukeAche/Etl-studio/pkg/workspace"
)

// Config - подключение к Redis для публикации сводок
type Config struct {
	// Address - адрес Redis (host:port)
	Address string `yaml:"address"`
	// Password - пароль (пустой = без аутентификации)
	Password string `yaml:"password"`
	// DB - номер базы Redis
	DB int `yaml:"db"`
	// TTL - время жизни ключа состояния в секундах
	TTL int `yaml:"ttl"`
}

// SessionResult - состояние сессии, публикуемое после каждой операции.
//
// Redis-ключи:
//
//	SET  etlstudio:session:<id>:state  <JSON>  EX <ttl>  — для опроса
//	PUB  etlstudio:session:<id>                          — для подписки
type SessionResult struct {
	SessionID      string                  `json:"session_id"`
	User           string                  `json:"user"`
	Operation      string                  `json:"operation"`
	Dataset        string                  `json:"dataset,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
	Datasets       int                     `json:"datasets"`
	Transactions   int                     `json:"transactions"`
	LastOperations []workspace.Transaction `json:"last_operations,omitempty"`
	Error          *string                 `json:"error,omitempty"`
}

// RedisPublisher публикует состояние сессии в Redis
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher создает publisher на основе конфигурации
func NewRedisPublisher(config Config) *RedisPublisher {
	if config.TTL <= 0 {
		config.TTL = 3600
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config}
}

// Ping проверяет доступность Redis
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Publish публикует состояние сессии после операции:
//   - SET etlstudio:session:<id>:state <JSON> EX <ttl>  → для опроса
//   - PUBLISH etlstudio:session:<id> <JSON>             → для подписки
//
// Вызывается и для успешных, и для неудачных операций;
// execErr == nil означает успех.
func (p *RedisPublisher) Publish(ctx context.Context, sessionID, user string, ws *workspace.Workspace, operation, dataset string, execErr error) error {
	result := SessionResult{
		SessionID:      sessionID,
		User:           user,
		Operation:      operation,
		Dataset:        dataset,
		Timestamp:      time.Now(),
		Datasets:       ws.Len(),
		Transactions:   len(ws.History()),
		LastOperations: ws.RecentHistory(5),
	}
	if execErr != nil {
		errStr := execErr.Error()
		result.Error = &errStr
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	stateKey := fmt.Sprintf("etlstudio:session:%s:state", sessionID)
	eventChannel := fmt.Sprintf("etlstudio:session:%s", sessionID)
	ttl := time.Duration(p.config.TTL) * time.Second

	if err := p.client.Set(ctx, stateKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, eventChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
