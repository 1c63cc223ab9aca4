package resultlog

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewRedisPublisherDefaults(t *testing.T) {
	p := NewRedisPublisher(Config{Address: "localhost:6379"})
	defer p.Close()

	if p.config.TTL != 3600 {
		t.Errorf("TTL по умолчанию = %d, ожидается 3600", p.config.TTL)
	}

	p2 := NewRedisPublisher(Config{Address: "localhost:6379", TTL: 120})
	defer p2.Close()

	if p2.config.TTL != 120 {
		t.Errorf("TTL = %d, ожидается 120", p2.config.TTL)
	}
}

func TestSessionResultJSON(t *testing.T) {
	errStr := "no such table: missing"
	result := SessionResult{
		SessionID:    "s-1",
		User:         "alice",
		Operation:    "query",
		Timestamp:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Datasets:     2,
		Transactions: 5,
		Error:        &errStr,
	}

	payload, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["session_id"] != "s-1" {
		t.Errorf("session_id = %v", decoded["session_id"])
	}
	if decoded["error"] != errStr {
		t.Errorf("error = %v", decoded["error"])
	}
	if _, ok := decoded["dataset"]; ok {
		t.Error("пустой dataset должен опускаться")
	}
	if _, ok := decoded["last_operations"]; ok {
		t.Error("пустой last_operations должен опускаться")
	}
}
