package query

import (
	"fmt"
	"strings"
)

// Validator проверяет пользовательский SQL перед выполнением в safe mode.
//
// Разрешены только SELECT и WITH запросы. Изменяющие операции, PRAGMA,
// множественные команды и комментарии блокируются. Администраторы
// работают без валидатора (unsafe режим медиатора).
type Validator struct{}

// NewValidator создает валидатор safe mode
func NewValidator() *Validator {
	return &Validator{}
}

// Validate проверяет запрос. Возвращает error с причиной отказа.
func (v *Validator) Validate(queryText string) error {
	normalized := strings.ToUpper(strings.TrimSpace(queryText))

	// Разрешены только SELECT и WITH (CTE)
	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		return fmt.Errorf("only SELECT and WITH queries allowed, got: %s", queryType(normalized))
	}

	if err := checkForbiddenKeywords(normalized); err != nil {
		return err
	}
	if err := checkMultipleStatements(normalized); err != nil {
		return err
	}
	return checkComments(normalized)
}

// checkForbiddenKeywords блокирует изменяющие и служебные операции
func checkForbiddenKeywords(normalized string) error {
	forbidden := []string{
		// DML
		"INSERT", "UPDATE", "DELETE", "TRUNCATE", "MERGE",
		// DDL
		"DROP", "CREATE", "ALTER",
		// Опасные операции
		"EXECUTE", "EXEC", "CALL",
		// SQLite специфика
		"PRAGMA", "ATTACH", "DETACH", "VACUUM",
		// Транзакции
		"BEGIN", "COMMIT", "ROLLBACK",
	}

	for _, keyword := range forbidden {
		// Ключевое слово ищется как отдельное слово, чтобы не срабатывать
		// на идентификаторах типа SELECTED или DELETED_AT
		patterns := []string{
			" " + keyword + " ",
			" " + keyword + ";",
			" " + keyword + "(",
			"(" + keyword + " ",
		}
		for _, p := range patterns {
			if strings.Contains(normalized, p) {
				return fmt.Errorf("forbidden keyword %q in safe mode", keyword)
			}
		}
		if strings.HasSuffix(normalized, " "+keyword) {
			return fmt.Errorf("forbidden keyword %q in safe mode", keyword)
		}
	}
	return nil
}

// checkMultipleStatements разрешает максимум одну точку с запятой в конце
func checkMultipleStatements(normalized string) error {
	switch strings.Count(normalized, ";") {
	case 0:
		return nil
	case 1:
		if strings.HasSuffix(strings.TrimSpace(normalized), ";") {
			return nil
		}
		return fmt.Errorf("semicolon allowed only at the end of query")
	default:
		return fmt.Errorf("multiple statements not allowed in safe mode")
	}
}

// checkComments запрещает SQL комментарии - могут скрывать вредоносный код
func checkComments(normalized string) error {
	if strings.Contains(normalized, "--") {
		return fmt.Errorf("SQL comments (--) not allowed in safe mode")
	}
	if strings.Contains(normalized, "/*") || strings.Contains(normalized, "*/") {
		return fmt.Errorf("SQL comments (/* */) not allowed in safe mode")
	}
	return nil
}

// queryType возвращает первое слово запроса для сообщения об ошибке
func queryType(normalized string) string {
	parts := strings.Fields(normalized)
	if len(parts) > 0 {
		return parts[0]
	}
	return "EMPTY"
}
