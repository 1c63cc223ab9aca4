package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Level - уровень детализации логирования
type Level int

const (
	// LevelMinimal - только основная информация
	LevelMinimal Level = iota

	// LevelStandard - стандартная информация
	LevelStandard

	// LevelFull - полная информация включая данные
	LevelFull
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Operation - тип операции студии
type Operation string

const (
	OpIngest         Operation = "ingest"
	OpDatabaseIngest Operation = "database_ingest"
	OpQuery          Operation = "query"
	OpTransform      Operation = "transform"
	OpExport         Operation = "export"
	OpLogin          Operation = "login"
	OpLogout         Operation = "logout"
	OpSignup         Operation = "signup"
	OpPasswordChange Operation = "password_change"
	OpNewsletter     Operation = "newsletter"
	OpContact        Operation = "contact"
)

// Status - статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
)

// Entry - запись в audit логе
type Entry struct {
	// ID - уникальный идентификатор записи
	ID string `json:"id"`

	// Timestamp - время операции
	Timestamp time.Time `json:"timestamp"`

	// Operation - тип операции
	Operation Operation `json:"operation"`

	// Status - статус выполнения
	Status Status `json:"status"`

	// User - имя пользователя сессии
	User string `json:"user,omitempty"`

	// Dataset - имя датасета в workspace
	Dataset string `json:"dataset,omitempty"`

	// Source - источник данных (файл, DSN, формат выгрузки)
	Source string `json:"source,omitempty"`

	// RowsAffected - количество затронутых строк
	RowsAffected int64 `json:"rows_affected,omitempty"`

	// Duration - длительность операции
	Duration time.Duration `json:"duration,omitempty"`

	// ErrorMessage - сообщение об ошибке
	ErrorMessage string `json:"error_message,omitempty"`

	// Metadata - дополнительные метаданные
	Metadata map[string]any `json:"metadata,omitempty"`

	// Data - данные операции (только для LevelFull)
	Data any `json:"data,omitempty"`

	// IPAddress - IP адрес источника
	IPAddress string `json:"ip_address,omitempty"`

	// SessionID - идентификатор сессии
	SessionID string `json:"session_id,omitempty"`
}

// NewEntry - создать новую audit запись
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        generateID(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
		Metadata:  make(map[string]any),
	}
}

// WithUser - установить пользователя
func (e *Entry) WithUser(user string) *Entry {
	e.User = user
	return e
}

// WithDataset - установить датасет
func (e *Entry) WithDataset(dataset string) *Entry {
	e.Dataset = dataset
	return e
}

// WithSource - установить источник
func (e *Entry) WithSource(source string) *Entry {
	e.Source = source
	return e
}

// WithRowsAffected - установить количество строк
func (e *Entry) WithRowsAffected(count int64) *Entry {
	e.RowsAffected = count
	return e
}

// WithDuration - установить длительность
func (e *Entry) WithDuration(duration time.Duration) *Entry {
	e.Duration = duration
	return e
}

// WithError - установить ошибку
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		e.Status = StatusFailure
	}
	return e
}

// WithMetadata - добавить метаданные
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithData - установить данные операции
func (e *Entry) WithData(data any) *Entry {
	e.Data = data
	return e
}

// WithIPAddress - установить IP адрес
func (e *Entry) WithIPAddress(ip string) *Entry {
	e.IPAddress = ip
	return e
}

// WithSessionID - установить ID сессии
func (e *Entry) WithSessionID(sessionID string) *Entry {
	e.SessionID = sessionID
	return e
}

// ToJSON - преобразовать в JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ToJSONIndent - преобразовать в форматированный JSON
func (e *Entry) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// String - строковое представление
func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s %s %s (dataset=%s, rows=%d, duration=%v)",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.User,
		e.Dataset,
		e.RowsAffected,
		e.Duration,
	)
}

// Clone - создать копию записи
func (e *Entry) Clone() *Entry {
	clone := *e

	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

// FilterByLevel - фильтрация данных по уровню
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		// Только основная информация
		filtered.Metadata = nil
		filtered.Data = nil
		filtered.IPAddress = ""
		filtered.SessionID = ""

	case LevelStandard:
		// Без чувствительных данных
		filtered.Data = nil

	case LevelFull:
		// Вся информация
	}

	return filtered
}

// generateID - генерация уникального ID
func generateID() string {
	return "audit-" + uuid.NewString()
}
