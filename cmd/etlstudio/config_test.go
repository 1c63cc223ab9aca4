package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DukeAche/Etl-studio/pkg/audit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Server.Port)
	}
	if cfg.Server.Name != "ETL Studio" {
		t.Errorf("Name = %q", cfg.Server.Name)
	}
	if cfg.Accounts.Path != "etlstudio.db" {
		t.Errorf("Accounts.Path = %q", cfg.Accounts.Path)
	}
	if cfg.SQL.Unsafe {
		t.Error("SQL должен быть безопасным по умолчанию")
	}
	if cfg.Results != nil || cfg.S3 != nil || cfg.Audit.Broker != nil {
		t.Error("опциональные секции должны быть nil по умолчанию")
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
server:
  name: My Studio
  port: 9000
accounts:
  path: /tmp/acc.db
  admin_password: secret123
sql:
  unsafe: true
audit:
  file: audit.log
  level: full
  broker:
    type: kafka
    brokers: [localhost:9092]
    topic: etl-audit
results:
  address: localhost:6379
  ttl: 120
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Name != "My Studio" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if !cfg.SQL.Unsafe {
		t.Error("sql.unsafe не прочитан")
	}
	if cfg.Audit.Broker == nil || cfg.Audit.Broker.Topic != "etl-audit" {
		t.Errorf("audit.broker = %+v", cfg.Audit.Broker)
	}
	if cfg.Results == nil || cfg.Results.TTL != 120 {
		t.Errorf("results = %+v", cfg.Results)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "Неизвестный уровень аудита",
			yaml:    "audit:\n  level: verbose\n",
			wantErr: "unknown level",
		},
		{
			name:    "Kafka без брокеров",
			yaml:    "audit:\n  broker:\n    type: kafka\n    topic: t\n",
			wantErr: "requires brokers",
		},
		{
			name:    "Kafka без топика",
			yaml:    "audit:\n  broker:\n    type: kafka\n    brokers: [localhost:9092]\n",
			wantErr: "requires topic",
		},
		{
			name:    "RabbitMQ без очереди",
			yaml:    "audit:\n  broker:\n    type: rabbitmq\n",
			wantErr: "requires queue",
		},
		{
			name:    "Неизвестный тип брокера",
			yaml:    "audit:\n  broker:\n    type: msmq\n",
			wantErr: "unknown type",
		},
		{
			name:    "Redis без адреса",
			yaml:    "results:\n  ttl: 60\n",
			wantErr: "address is required",
		},
		{
			name:    "S3 без бакета",
			yaml:    "s3:\n  prefix: exports\n",
			wantErr: "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := loadConfig(path)
			if err == nil {
				t.Fatal("ожидается ошибка")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ошибка %q не содержит %q", err, tt.wantErr)
			}
		})
	}
}

func TestAuditLevel(t *testing.T) {
	tests := []struct {
		in   string
		want audit.Level
	}{
		{"minimal", audit.LevelMinimal},
		{"standard", audit.LevelStandard},
		{"full", audit.LevelFull},
		{"", audit.LevelStandard},
	}
	for _, tt := range tests {
		if got := auditLevel(tt.in); got != tt.want {
			t.Errorf("auditLevel(%q) = %v, ожидается %v", tt.in, got, tt.want)
		}
	}
}
