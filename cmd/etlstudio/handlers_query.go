package main

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DukeAche/Etl-studio/pkg/audit"
	"github.com/DukeAche/Etl-studio/pkg/query"
	"github.com/DukeAche/Etl-studio/pkg/workspace"
)

// ─────────────────────────────────────────────────────────────────────────────
// SQL workbench
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handleQueryForm(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	a.renderWorkbench(w, r, sess, "", nil, "")
}

func (a *App) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	ws := sess.Workspace

	queryText := r.FormValue("sql")
	saveAs := strings.TrimSpace(r.FormValue("save_as"))
	started := time.Now()

	result, err := a.mediator.Execute(ctx, ws.Snapshot(), queryText)
	if err != nil {
		a.recordAudit(ctx, audit.NewEntry(audit.OpQuery, audit.StatusFailure).
			WithUser(sess.User.Username).WithSessionID(sess.ID).
			WithError(err).WithMetadata("query", workspace.TruncateQuery(queryText)))
		a.publishResult(ctx, sess, string(audit.OpQuery), "", err)

		// Текст ошибки движка показывается дословно
		var execErr *query.ExecutionError
		msg := err.Error()
		if errors.As(err, &execErr) {
			msg = execErr.Message
		}
		a.renderWorkbench(w, r, sess, queryText, nil, msg)
		return
	}

	// Неудачные запросы в журнал не попадают
	ws.RecordQuery(queryText, result.RowsReturned)

	savedMsg := ""
	if saveAs != "" {
		if addErr := ws.Add(saveAs, result.Table); addErr != nil {
			savedMsg = addErr.Error()
		} else {
			ws.RecordTransaction(workspace.OpSQLQuery,
				workspace.SQLQueryDetails(workspace.TruncateQuery(queryText), saveAs, result.RowsReturned))
			savedMsg = fmt.Sprintf("saved as %q", saveAs)
		}
	}

	a.recordAudit(ctx, audit.NewEntry(audit.OpQuery, audit.StatusSuccess).
		WithUser(sess.User.Username).WithSessionID(sess.ID).
		WithRowsAffected(int64(result.RowsReturned)).WithDuration(time.Since(started)).
		WithMetadata("query", workspace.TruncateQuery(queryText)))
	a.publishResult(ctx, sess, string(audit.OpQuery), saveAs, nil)

	fmt.Printf("etlstudio: [%s] query: %d rows in %s\n",
		sess.User.Username, result.RowsReturned, time.Since(started).Round(time.Millisecond))

	a.renderWorkbenchResult(w, r, sess, queryText, result, savedMsg)
}

func (a *App) renderWorkbench(w http.ResponseWriter, r *http.Request, sess *Session, queryText string, result *query.Result, errMsg string) {
	a.renderWorkbenchPage(w, r, sess, queryText, result, errMsg, "")
}

func (a *App) renderWorkbenchResult(w http.ResponseWriter, r *http.Request, sess *Session, queryText string, result *query.Result, savedMsg string) {
	a.renderWorkbenchPage(w, r, sess, queryText, result, "", savedMsg)
}

func (a *App) renderWorkbenchPage(w http.ResponseWriter, r *http.Request, sess *Session, queryText string, result *query.Result, errMsg, savedMsg string) {
	ws := sess.Workspace

	var b strings.Builder
	writePageHead(&b, "SQL — "+a.cfg.Server.Name)
	a.writeNavbar(&b, sess, "/query")
	writeFlash(&b, r)

	if errMsg != "" {
		b.WriteString(`<div class="flash-err">` + html.EscapeString(errMsg) + `</div>`)
	}
	if savedMsg != "" {
		b.WriteString(`<div class="flash-ok">` + html.EscapeString(savedMsg) + `</div>`)
	}

	// Датасеты, доступные как таблицы
	names := ws.Names()
	b.WriteString(`<div class="card"><div class="card-header">Tables</div><div class="card-body">`)
	if len(names) == 0 {
		b.WriteString(`No datasets loaded — <a class="nav-link" href="/ingest">ingest</a> something first.`)
	} else {
		for _, name := range names {
			b.WriteString(`<span class="pill" style="margin-right:6px;">` + html.EscapeString(name) + `</span>`)
		}
	}
	b.WriteString(`</div></div>`)

	// Форма запроса
	mode := "safe mode: SELECT / WITH only"
	if a.cfg.SQL.Unsafe {
		mode = "unsafe mode"
	}
	b.WriteString(`<div class="card"><div class="card-header">Query <span class="pill">` + mode + `</span></div>`)
	b.WriteString(`<div class="card-body">`)
	b.WriteString(`<form method="POST" action="/query" class="form-grid" style="max-width:none;">`)
	b.WriteString(`<textarea class="form-area" name="sql" placeholder="SELECT * FROM ` + html.EscapeString(placeholderTable(names)) + ` LIMIT 10">` +
		html.EscapeString(queryText) + `</textarea>`)
	b.WriteString(`<div style="display:flex;gap:12px;align-items:center;">`)
	b.WriteString(`<button class="btn btn-primary" type="submit">Run</button>`)
	b.WriteString(`<input class="form-input" name="save_as" placeholder="save result as (optional)" style="max-width:260px;">`)
	b.WriteString(`</div></form>`)
	b.WriteString(`</div></div>`)

	// Результат
	if result != nil {
		b.WriteString(`<div class="card"><div class="card-header">Result ` +
			`<span class="pill">` + strconv.Itoa(result.RowsReturned) + ` rows</span></div>`)
		writeDataTable(&b, result.Table, 200)
		b.WriteString(`</div>`)
	}

	// Журнал запросов
	recent := ws.RecentQueries(10)
	if len(recent) > 0 {
		b.WriteString(`<div class="card"><div class="card-header">Query history</div>`)
		b.WriteString(`<div class="data-wrapper"><table class="data-table"><thead><tr>` +
			`<th>Time</th><th>Query</th><th>Rows</th></tr></thead><tbody>`)
		for _, q := range recent {
			b.WriteString(`<tr>`)
			b.WriteString(`<td>` + q.Timestamp.Format("15:04:05") + `</td>`)
			b.WriteString(`<td>` + html.EscapeString(workspace.TruncateQuery(q.Query)) + `</td>`)
			b.WriteString(`<td class="num-val">` + strconv.Itoa(q.RowsReturned) + `</td>`)
			b.WriteString(`</tr>`)
		}
		b.WriteString(`</tbody></table></div></div>`)
	}

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func placeholderTable(names []string) string {
	if len(names) == 0 {
		return "dataset"
	}
	return names[0]
}
