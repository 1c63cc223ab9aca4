package workspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// DuplicateNameError - датасет с таким именем уже существует
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("dataset %q already exists", e.Name)
}

// UnknownNameError - обращение к отсутствующему датасету
type UnknownNameError struct {
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("dataset %q does not exist", e.Name)
}

// Workspace - контейнер именованных датасетов одной пользовательской сессии.
//
// Хранит отображение имя -> таблица (порядок вставки сохраняется),
// указатель на текущий датасет и append-only журналы операций и запросов.
// Создается один раз при входе пользователя и передается обработчикам
// явно - никакого глобального состояния. Живет только в памяти сессии.
//
// Все мутирующие методы защищены мьютексом: HTTP-оболочка может доставить
// конкурентные запросы одной сессии.
type Workspace struct {
	mu sync.RWMutex

	datasets map[string]*table.Table
	order    []string // порядок вставки для отображения
	current  string   // "" пока нет ни одного датасета

	history      []Transaction
	queryHistory []QueryRecord
}

// New создает пустой workspace
func New() *Workspace {
	return &Workspace{
		datasets: make(map[string]*table.Table),
	}
}

// Add добавляет новый датасет. Возвращает DuplicateNameError если имя занято.
// Первый добавленный датасет автоматически становится текущим -
// указатель current никогда не остается пустым при непустом workspace.
func (w *Workspace) Add(name string, t *table.Table) error {
	if name == "" {
		return fmt.Errorf("dataset name is required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.datasets[name]; exists {
		return &DuplicateNameError{Name: name}
	}

	w.datasets[name] = t
	w.order = append(w.order, name)
	if w.current == "" {
		w.current = name
	}
	return nil
}

// Replace заменяет значение существующего датасета.
// Порядок вставки и текущий указатель не меняются.
// Это отдельная операция: Add никогда молча не перезаписывает.
func (w *Workspace) Replace(name string, t *table.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.datasets[name]; !exists {
		return &UnknownNameError{Name: name}
	}
	w.datasets[name] = t
	return nil
}

// SetCurrent переключает текущий датасет
func (w *Workspace) SetCurrent(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.datasets[name]; !exists {
		return &UnknownNameError{Name: name}
	}
	w.current = name
	return nil
}

// Current возвращает имя и значение текущего датасета.
// ok == false означает пустой workspace ("no data loaded" для UI);
// таблица при этом - пустая, не nil, чтобы вызывающий мог не ветвиться
// на nil-проверках.
func (w *Workspace) Current() (name string, t *table.Table, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.current == "" {
		return "", table.Empty(), false
	}
	return w.current, w.datasets[w.current], true
}

// Get возвращает датасет по имени
func (w *Workspace) Get(name string) (*table.Table, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, exists := w.datasets[name]
	if !exists {
		return nil, &UnknownNameError{Name: name}
	}
	return t, nil
}

// Names возвращает имена датасетов в порядке вставки
func (w *Workspace) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, len(w.order))
	copy(names, w.order)
	return names
}

// Len возвращает количество датасетов
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.datasets)
}

// Snapshot возвращает копию отображения имя -> таблица.
// Query Mediator работает с таким снимком: два запроса подряд могут
// увидеть разные снимки, если между ними была мутация - это нормальная
// семантика однопользовательской сессии.
func (w *Workspace) Snapshot() map[string]*table.Table {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := make(map[string]*table.Table, len(w.datasets))
	for name, t := range w.datasets {
		snap[name] = t
	}
	return snap
}

// RecordTransaction добавляет запись в журнал операций.
// Всегда успешна, никогда не блокирует надолго.
func (w *Workspace) RecordTransaction(kind OperationKind, details Details) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.history = append(w.history, Transaction{
		Timestamp: time.Now(),
		Kind:      kind,
		Details:   details.clone(),
	})
}

// RecordQuery добавляет запись в журнал SQL запросов
func (w *Workspace) RecordQuery(query string, rowsReturned int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.queryHistory = append(w.queryHistory, QueryRecord{
		Query:        query,
		Timestamp:    time.Now(),
		RowsReturned: rowsReturned,
	})
}

// History возвращает копию полного журнала операций (для экспорта)
func (w *Workspace) History() []Transaction {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Transaction, len(w.history))
	copy(out, w.history)
	return out
}

// RecentHistory возвращает последние k записей журнала, новые первыми
// (так журнал отображается в сайдбаре)
func (w *Workspace) RecentHistory(k int) []Transaction {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := len(w.history)
	if k > n {
		k = n
	}
	out := make([]Transaction, 0, k)
	for i := n - 1; i >= n-k; i-- {
		out = append(out, w.history[i])
	}
	return out
}

// QueryHistory возвращает копию журнала запросов
func (w *Workspace) QueryHistory() []QueryRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]QueryRecord, len(w.queryHistory))
	copy(out, w.queryHistory)
	return out
}

// RecentQueries возвращает последние k запросов, новые первыми
func (w *Workspace) RecentQueries(k int) []QueryRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := len(w.queryHistory)
	if k > n {
		k = n
	}
	out := make([]QueryRecord, 0, k)
	for i := n - 1; i >= n-k; i-- {
		out = append(out, w.queryHistory[i])
	}
	return out
}
