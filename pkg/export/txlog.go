package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/DukeAche/Etl-studio/pkg/workspace"
)

// EncodeTransactionLog выгружает журнал операций сессии в CSV.
// Детали операции сериализуются JSON строкой в последней колонке.
func EncodeTransactionLog(history []workspace.Transaction, baseName string) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"timestamp", "operation", "details"}); err != nil {
		return nil, fmt.Errorf("write log header: %w", err)
	}
	for _, tx := range history {
		details, err := json.Marshal(tx.Details)
		if err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
		record := []string{
			tx.Timestamp.Format("2006-01-02 15:04:05"),
			string(tx.Kind),
			string(details),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush log: %w", err)
	}

	data := buf.Bytes()
	return &Result{
		Filename:    baseName + ".csv",
		ContentType: "text/csv",
		Data:        data,
		Checksum:    checksum(data),
	}, nil
}
