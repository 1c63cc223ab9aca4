package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Умолчания ротации: журнал однопользовательской студии растет
// медленно, 20 MB на файл и три backup покрывают месяцы работы.
const (
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 3
)

// FileAppenderConfig - настройки файлового журнала
type FileAppenderConfig struct {
	FilePath   string
	MaxSize    int64 // мегабайты, 0 = 20
	MaxBackups int   // 0 = 3
	Level      Level
	FormatJSON bool // JSON-строка на запись вместо текстовой
}

// FileAppender пишет записи в файл с ротацией по размеру.
// Backup файлы нумеруются: audit.log.1 самый свежий.
type FileAppender struct {
	mu         sync.Mutex
	out        *os.File
	path       string
	size       int64
	limit      int64
	maxBackups int
	level      Level
	formatJSON bool
}

// NewFileAppender - открыть (или создать) файл журнала
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("audit dir: %w", err)
	}

	out, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit file: %w", err)
	}
	info, err := out.Stat()
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("audit file stat: %w", err)
	}

	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := config.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	return &FileAppender{
		out:        out,
		path:       config.FilePath,
		size:       info.Size(),
		limit:      maxSize * 1024 * 1024,
		maxBackups: maxBackups,
		level:      config.Level,
		formatJSON: config.FormatJSON,
	}, nil
}

// Append - записать entry, отфильтрованный по уровню appender-а
func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	filtered := entry.FilterByLevel(fa.level)

	var line []byte
	if fa.formatJSON {
		data, err := filtered.ToJSON()
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		line = append(data, '\n')
	} else {
		line = []byte(filtered.String() + "\n")
	}

	if fa.size+int64(len(line)) > fa.limit {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("rotate audit file: %w", err)
		}
	}

	n, err := fa.out.Write(line)
	fa.size += int64(n)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// rotate - сдвинуть backup цепочку и начать новый файл.
// Самый старый backup (.maxBackups) при этом выпадает.
func (fa *FileAppender) rotate() error {
	if err := fa.out.Close(); err != nil {
		return err
	}

	os.Remove(fmt.Sprintf("%s.%d", fa.path, fa.maxBackups))
	for i := fa.maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", fa.path, i)
		if _, err := os.Stat(from); err == nil {
			os.Rename(from, fmt.Sprintf("%s.%d", fa.path, i+1))
		}
	}
	if err := os.Rename(fa.path, fa.path+".1"); err != nil {
		return err
	}

	out, err := os.OpenFile(fa.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	fa.out = out
	fa.size = 0
	return nil
}

// Flush - принудительный fsync
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.out == nil {
		return nil
	}
	return fa.out.Sync()
}

// Close - закрыть файл журнала
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.out == nil {
		return nil
	}
	err := fa.out.Close()
	fa.out = nil
	return err
}

// Path - путь к активному файлу журнала
func (fa *FileAppender) Path() string { return fa.path }
