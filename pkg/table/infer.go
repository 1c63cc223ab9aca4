package table

import (
	"strconv"
	"strings"
)

// maxInferSample - сколько строк просматривается при выводе типа колонки.
// Достаточно для файлов с однородными данными, дешево для больших.
const maxInferSample = 1000

// InferKind выводит тип колонки по наблюдаемым значениям.
// NULL значения игнорируются. Тип выбирается как самый строгий,
// которому соответствуют ВСЕ непустые значения:
// integer -> float -> boolean -> timestamp -> string.
// Колонка без единого непустого значения получает unknown.
func InferKind(cells []Cell) Kind {
	seen := 0
	isInt, isFloat, isBool, isTime := true, true, true, true

	for _, cell := range cells {
		if !cell.Valid {
			continue
		}
		if seen >= maxInferSample {
			break
		}
		seen++
		s := strings.TrimSpace(cell.Value)

		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			lower := strings.ToLower(s)
			if lower != "true" && lower != "false" {
				isBool = false
			}
		}
		if isTime {
			if _, ok := parseTimestamp(s); !ok {
				isTime = false
			}
		}
		if !isInt && !isFloat && !isBool && !isTime {
			return KindString
		}
	}

	if seen == 0 {
		return KindUnknown
	}

	switch {
	case isInt:
		return KindInteger
	case isFloat:
		return KindFloat
	case isBool:
		return KindBoolean
	case isTime:
		return KindTimestamp
	default:
		return KindString
	}
}

// InferColumns выводит типы всех колонок таблицы по ее данным.
// Используется адаптерами загрузки после чтения сырых строк.
func InferColumns(names []string, rows [][]Cell) []Column {
	columns := make([]Column, len(names))
	for i, name := range names {
		cells := make([]Cell, 0, len(rows))
		for _, row := range rows {
			if i < len(row) {
				cells = append(cells, row[i])
			}
		}
		columns[i] = Column{Name: name, Kind: InferKind(cells)}
	}
	return columns
}
