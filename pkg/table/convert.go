package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout - каноническое представление timestamp значений
const TimestampLayout = "2006-01-02 15:04:05"

// Дополнительные форматы, принимаемые при парсинге timestamp.
// Значение нормализуется к TimestampLayout.
var acceptedTimeLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// ConversionError - ошибка конвертации значения в целевой тип.
// Не фатальна: ChangeType собирает такие ошибки по колонкам,
// не прерывая операцию целиком.
type ConversionError struct {
	Column string
	Kind   Kind
	Value  string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("column %q: cannot convert %q to %s: %s",
		e.Column, e.Value, e.Kind, e.Reason)
}

// Convert конвертирует ячейку в целевой тип.
// NULL остается NULL для любого типа. Результат - нормализованное
// строковое представление значения в целевом типе.
func Convert(cell Cell, column string, target Kind) (Cell, error) {
	if !cell.Valid {
		return Null(), nil
	}

	switch target {
	case KindString:
		return cell, nil

	case KindInteger:
		v, err := parseInteger(cell.Value)
		if err != nil {
			return Cell{}, &ConversionError{Column: column, Kind: target, Value: cell.Value, Reason: "invalid integer value"}
		}
		return String(strconv.FormatInt(v, 10)), nil

	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64)
		if err != nil {
			return Cell{}, &ConversionError{Column: column, Kind: target, Value: cell.Value, Reason: "invalid float value"}
		}
		return String(strconv.FormatFloat(v, 'g', -1, 64)), nil

	case KindBoolean:
		v, ok := parseBoolean(cell.Value)
		if !ok {
			return Cell{}, &ConversionError{Column: column, Kind: target, Value: cell.Value, Reason: "invalid boolean value"}
		}
		return String(strconv.FormatBool(v)), nil

	case KindTimestamp:
		t, ok := parseTimestamp(cell.Value)
		if !ok {
			return Cell{}, &ConversionError{Column: column, Kind: target, Value: cell.Value, Reason: "unrecognized timestamp format"}
		}
		return String(t.Format(TimestampLayout)), nil

	default:
		return Cell{}, &ConversionError{Column: column, Kind: target, Value: cell.Value, Reason: "unsupported target kind"}
	}
}

// parseInteger парсит целое, допуская float-запись без дробной части ("42.0")
func parseInteger(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	v := int64(f)
	if float64(v) != f {
		return 0, fmt.Errorf("fractional part in %q", raw)
	}
	return v, nil
}

// parseBoolean принимает true/false, t/f, yes/no, 1/0 без учета регистра
func parseBoolean(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "1":
		return true, true
	case "false", "f", "no", "0":
		return false, true
	default:
		return false, false
	}
}

// parseTimestamp пробует все принимаемые форматы по порядку
func parseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFloat возвращает числовое значение ячейки для статистики
// (mean/median в FillMissing). NULL и нечисловые значения - ok=false.
func ParseFloat(cell Cell) (float64, bool) {
	if !cell.Valid {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
