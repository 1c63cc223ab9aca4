package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DukeAche/Etl-studio/pkg/accounts"
	"github.com/DukeAche/Etl-studio/pkg/audit"
	"github.com/DukeAche/Etl-studio/pkg/brokers"
	"github.com/DukeAche/Etl-studio/pkg/export"
	"github.com/DukeAche/Etl-studio/pkg/query"
	"github.com/DukeAche/Etl-studio/pkg/resultlog"
)

// App — HTTP приложение etlstudio
type App struct {
	cfg       *StudioConfig
	store     *accounts.Store
	mediator  *query.Mediator
	sessions  *SessionManager
	auditLog  audit.Logger
	results   *resultlog.RedisPublisher
	s3        *export.S3Sink
	startedAt time.Time
}

func newApp(ctx context.Context, cfg *StudioConfig) (*App, error) {
	store, err := accounts.Open(cfg.Accounts.Path, accounts.BcryptHasher{Cost: cfg.Accounts.BcryptCost})
	if err != nil {
		return nil, fmt.Errorf("accounts store: %w", err)
	}
	if err := store.InitDefaultAdmin(ctx, cfg.Accounts.AdminPassword); err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("admin bootstrap: %w", err)
	}

	app := &App{
		cfg:       cfg,
		store:     store,
		mediator:  query.NewMediator(!cfg.SQL.Unsafe),
		sessions:  newSessionManager(),
		startedAt: time.Now(),
	}

	if app.auditLog, err = buildAuditLogger(ctx, cfg.Audit); err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	if cfg.Results != nil {
		app.results = resultlog.NewRedisPublisher(*cfg.Results)
		if err := app.results.Ping(ctx); err != nil {
			fmt.Printf("etlstudio: warning: redis unreachable: %v\n", err)
		} else {
			fmt.Printf("etlstudio: result log → redis %s\n", cfg.Results.Address)
		}
	}

	if cfg.S3 != nil {
		sink, err := export.NewS3Sink(ctx, *cfg.S3)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("s3 sink: %w", err)
		}
		app.s3 = sink
		fmt.Printf("etlstudio: s3 sink → s3://%s/%s\n", cfg.S3.Bucket, cfg.S3.Prefix)
	}

	return app, nil
}

// buildAuditLogger собирает асинхронный audit logger из настроенных
// appenders. Без единого appender возвращает NullLogger.
func buildAuditLogger(ctx context.Context, cfg AuditSection) (audit.Logger, error) {
	level := auditLevel(cfg.Level)
	var appenders []audit.Appender

	if cfg.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   cfg.File,
			Level:      level,
			FormatJSON: true,
		})
		if err != nil {
			return nil, fmt.Errorf("audit file: %w", err)
		}
		appenders = append(appenders, fa)
		fmt.Printf("etlstudio: audit log → %s\n", cfg.File)
	}

	if cfg.Broker != nil {
		pub, err := brokers.New(*cfg.Broker)
		if err != nil {
			return nil, fmt.Errorf("audit broker: %w", err)
		}
		if err := pub.Connect(ctx); err != nil {
			return nil, fmt.Errorf("audit broker connect: %w", err)
		}
		appenders = append(appenders, audit.NewBrokerAppender(pub, level))
		fmt.Printf("etlstudio: audit stream → %s\n", pub.Type())
	}

	if len(appenders) == 0 {
		return audit.NewNullLogger(), nil
	}

	logCfg := audit.DefaultConfig()
	logCfg.DefaultLevel = level
	logCfg.OnError = func(err error) {
		fmt.Printf("etlstudio: audit error: %v\n", err)
	}
	return audit.NewLogger(logCfg, appenders...), nil
}

func (a *App) close() {
	if a.auditLog != nil {
		a.auditLog.Close() //nolint:errcheck
	}
	if a.results != nil {
		a.results.Close() //nolint:errcheck
	}
	a.store.Close() //nolint:errcheck
}

func runServer(cfg *StudioConfig) error {
	ctx := context.Background()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Публичные страницы
	r.Get("/login", app.handleLoginForm)
	r.Post("/login", app.handleLogin)
	r.Get("/signup", app.handleSignupForm)
	r.Post("/signup", app.handleSignup)
	r.Get("/contact", app.handleContactForm)
	r.Post("/contact", app.handleContact)
	r.Post("/newsletter", app.handleNewsletter)

	// Страницы под аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(app.requireAuth)

		r.Get("/", app.handleHome)
		r.Post("/logout", app.handleLogout)
		r.Get("/password", app.handlePasswordForm)
		r.Post("/password", app.handlePasswordChange)

		r.Get("/ingest", app.handleIngestForm)
		r.Post("/ingest/upload", app.handleUpload)
		r.Post("/ingest/database", app.handleDatabaseIngest)

		r.Get("/datasets/{name}", app.handleDataset)
		r.Post("/datasets/{name}/transform", app.handleTransform)
		r.Get("/datasets/{name}/export", app.handleExport)
		r.Post("/datasets/{name}/export/s3", app.handleExportS3)

		r.Get("/query", app.handleQueryForm)
		r.Post("/query", app.handleQuery)

		r.Get("/history", app.handleHistory)
		r.Get("/history.csv", app.handleHistoryCSV)

		r.Group(func(r chi.Router) {
			r.Use(app.requireAdmin)
			r.Get("/admin", app.handleAdmin)
			r.Get("/admin/logs.csv", app.handleAdminLogsCSV)
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	fmt.Printf("\netlstudio ready → http://localhost%s\n", addr)
	fmt.Printf("  accounts: %s, sql unsafe: %v\n", cfg.Accounts.Path, cfg.SQL.Unsafe)

	return http.ListenAndServe(addr, r)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

type contextKey string

const sessionKey contextKey = "session"

// requireAuth перенаправляет неаутентифицированные запросы на /login
// и кладет сессию в контекст запроса.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := a.sessions.Get(r)
		if sess == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// requireAdmin пропускает только администраторов
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if sess == nil || !sess.User.IsAdmin {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(r *http.Request) *Session {
	sess, _ := r.Context().Value(sessionKey).(*Session)
	return sess
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ─────────────────────────────────────────────────────────────────────────────
// Audit / result log plumbing
// ─────────────────────────────────────────────────────────────────────────────

// recordAudit отправляет entry в audit log; ошибки журнала не
// останавливают обработку запроса
func (a *App) recordAudit(ctx context.Context, entry *audit.Entry) {
	if err := a.auditLog.Log(ctx, entry); err != nil {
		fmt.Printf("etlstudio: audit error: %v\n", err)
	}
}

// publishResult публикует состояние сессии в Redis после операции
func (a *App) publishResult(ctx context.Context, sess *Session, operation, dataset string, execErr error) {
	if a.results == nil {
		return
	}
	err := a.results.Publish(ctx, sess.ID, sess.User.Username, sess.Workspace, operation, dataset, execErr)
	if err != nil {
		fmt.Printf("etlstudio: result log error: %v\n", err)
	}
}
