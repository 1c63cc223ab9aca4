package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DukeAche/Etl-studio/pkg/audit"
	"github.com/DukeAche/Etl-studio/pkg/brokers"
	"github.com/DukeAche/Etl-studio/pkg/export"
	"github.com/DukeAche/Etl-studio/pkg/resultlog"
)

// StudioConfig — конфигурация etlstudio
type StudioConfig struct {
	Server   ServerSection     `yaml:"server"`
	Accounts AccountsSection   `yaml:"accounts"`
	SQL      SQLSection        `yaml:"sql"`
	Audit    AuditSection      `yaml:"audit"`
	Results  *resultlog.Config `yaml:"results"` // nil = публикация в Redis отключена
	S3       *export.S3Config  `yaml:"s3"`      // nil = выгрузка в S3 отключена
}

// ServerSection — параметры HTTP сервера
type ServerSection struct {
	Name string `yaml:"name"` // заголовок в UI
	Port int    `yaml:"port"` // HTTP порт, по умолчанию 8080
}

// AccountsSection — хранилище учетных записей
type AccountsSection struct {
	Path          string `yaml:"path"`           // SQLite файл, по умолчанию etlstudio.db
	AdminPassword string `yaml:"admin_password"` // пароль бутстрап-админа, пустой = admin123
	BcryptCost    int    `yaml:"bcrypt_cost"`    // 0 = bcrypt.DefaultCost
}

// SQLSection — режим SQL workbench
type SQLSection struct {
	// Unsafe отключает валидатор запросов: разрешает не только SELECT/WITH.
	// Датасеты живут в памяти сессии, так что мутации затрагивают
	// только копию внутри одного запроса.
	Unsafe bool `yaml:"unsafe"`
}

// AuditSection — журнал аудита
type AuditSection struct {
	File   string          `yaml:"file"`   // JSON lines файл, пустой = только брокер/консоль
	Level  string          `yaml:"level"`  // minimal / standard / full
	Broker *brokers.Config `yaml:"broker"` // nil = публикация в брокер отключена
}

// loadConfig читает и валидирует YAML конфиг.
// Пустой путь дает конфигурацию по умолчанию.
func loadConfig(path string) (*StudioConfig, error) {
	var cfg StudioConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = "ETL Studio"
	}
	if cfg.Accounts.Path == "" {
		cfg.Accounts.Path = "etlstudio.db"
	}

	switch cfg.Audit.Level {
	case "", "minimal", "standard", "full":
	default:
		return nil, fmt.Errorf("audit: unknown level %q (minimal/standard/full)", cfg.Audit.Level)
	}

	if cfg.Audit.Broker != nil {
		switch cfg.Audit.Broker.Type {
		case "kafka":
			if len(cfg.Audit.Broker.Brokers) == 0 {
				return nil, fmt.Errorf("audit broker: kafka requires brokers list")
			}
			if cfg.Audit.Broker.Topic == "" {
				return nil, fmt.Errorf("audit broker: kafka requires topic")
			}
		case "rabbitmq":
			if cfg.Audit.Broker.Queue == "" {
				return nil, fmt.Errorf("audit broker: rabbitmq requires queue")
			}
		default:
			return nil, fmt.Errorf("audit broker: unknown type %q (kafka/rabbitmq)", cfg.Audit.Broker.Type)
		}
	}

	if cfg.Results != nil && cfg.Results.Address == "" {
		return nil, fmt.Errorf("results: address is required")
	}

	if cfg.S3 != nil {
		if err := cfg.S3.Validate(); err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
	}

	return &cfg, nil
}

// auditLevel переводит строку конфига в уровень аудита
func auditLevel(s string) audit.Level {
	switch s {
	case "minimal":
		return audit.LevelMinimal
	case "full":
		return audit.LevelFull
	default:
		return audit.LevelStandard
	}
}
