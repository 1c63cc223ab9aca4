package main

import (
	"encoding/csv"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/DukeAche/Etl-studio/pkg/export"
)

// ─────────────────────────────────────────────────────────────────────────────
// Operation history
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	ws := sess.Workspace

	var b strings.Builder
	writePageHead(&b, "History — "+a.cfg.Server.Name)
	a.writeNavbar(&b, sess, "/history")
	writeFlash(&b, r)

	history := ws.History()

	b.WriteString(`<div class="card"><div class="card-header">Operation history ` +
		`<span class="pill">` + strconv.Itoa(len(history)) + ` entries</span>`)
	if len(history) > 0 {
		b.WriteString(`<a class="btn btn-ghost" style="margin-left:auto;" href="/history.csv">Download CSV</a>`)
	}
	b.WriteString(`</div>`)

	if len(history) == 0 {
		b.WriteString(`<div class="card-body">No operations yet.</div></div>`)
	} else {
		b.WriteString(`<div class="data-wrapper"><table class="data-table"><thead><tr>` +
			`<th>Time</th><th>Operation</th><th>Details</th></tr></thead><tbody>`)
		// Новые записи сверху
		for i := len(history) - 1; i >= 0; i-- {
			writeTransactionRow(&b, history[i])
		}
		b.WriteString(`</tbody></table></div></div>`)
	}

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func (a *App) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	res, err := export.EncodeTransactionLog(sess.Workspace.History(), "transaction_log")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	w.Header().Set("X-Content-Checksum", res.Checksum)
	w.Write(res.Data) //nolint:errcheck
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin dashboard
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) handleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)

	stats, err := a.store.Stats(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	signups, err := a.store.SignupCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	contacts, err := a.store.ContactCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	action := r.URL.Query().Get("action")

	logs, err := a.store.AuthenticationLogs(ctx, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	writePageHead(&b, "Admin — "+a.cfg.Server.Name)
	a.writeNavbar(&b, sess, "/admin")
	writeFlash(&b, r)

	b.WriteString(`<div class="header-card">`)
	b.WriteString(`<div class="header-top"><span class="table-name">Admin dashboard</span></div>`)
	b.WriteString(`<div class="meta-grid">`)
	writeMetaItem(&b, "Users", strconv.Itoa(stats.TotalUsers))
	writeMetaItem(&b, "Logins", strconv.Itoa(stats.TotalLogins))
	writeMetaItem(&b, "Failed logins", strconv.Itoa(stats.FailedLogins))
	writeMetaItem(&b, "Newsletter signups", strconv.Itoa(signups))
	writeMetaItem(&b, "Contact messages", strconv.Itoa(contacts))
	writeMetaItem(&b, "Active sessions", strconv.Itoa(a.sessions.Count()))
	writeMetaItem(&b, "Started", a.startedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(`</div></div>`)

	// Фильтр журнала
	b.WriteString(`<div class="card"><div class="card-header">Authentication log`)
	b.WriteString(`<a class="btn btn-ghost" style="margin-left:auto;" href="/admin/logs.csv?limit=` +
		strconv.Itoa(limit) + `">Download CSV</a></div>`)
	b.WriteString(`<div class="card-body" style="padding-bottom:0;">`)
	b.WriteString(`<form method="GET" action="/admin" style="display:flex;gap:12px;align-items:flex-end;flex-wrap:wrap;">`)
	b.WriteString(`<div class="form-row"><label class="form-label">Action</label><select class="form-select" name="action">`)
	b.WriteString(`<option value="">all</option>`)
	for _, act := range []string{"login", "logout", "failed_login", "signup"} {
		sel := ""
		if act == action {
			sel = " selected"
		}
		b.WriteString(`<option value="` + act + `"` + sel + `>` + act + `</option>`)
	}
	b.WriteString(`</select></div>`)
	b.WriteString(`<div class="form-row"><label class="form-label">Limit</label>` +
		`<input class="form-input" name="limit" type="number" min="1" value="` + strconv.Itoa(limit) + `" style="max-width:90px;"></div>`)
	b.WriteString(`<button class="btn btn-primary" type="submit">Apply</button>`)
	b.WriteString(`</form></div>`)

	b.WriteString(`<div class="data-wrapper"><table class="data-table"><thead><tr>` +
		`<th>Time</th><th>User</th><th>Action</th><th>IP</th><th>User agent</th></tr></thead><tbody>`)
	shown := 0
	for _, entry := range logs {
		if action != "" && entry.Action != action {
			continue
		}
		shown++
		cls := ""
		if entry.Action == "failed_login" {
			cls = ` class="bool-false"`
		}
		b.WriteString(`<tr>`)
		b.WriteString(`<td>` + entry.Timestamp.Format("2006-01-02 15:04:05") + `</td>`)
		b.WriteString(`<td>` + html.EscapeString(entry.Username) + `</td>`)
		b.WriteString(`<td` + cls + `>` + html.EscapeString(entry.Action) + `</td>`)
		b.WriteString(`<td>` + html.EscapeString(entry.IPAddress) + `</td>`)
		b.WriteString(`<td>` + html.EscapeString(entry.UserAgent) + `</td>`)
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></div>`)
	b.WriteString(`<div class="stats-bar"><span><strong>` + strconv.Itoa(shown) + `</strong> entries shown</span></div>`)
	b.WriteString(`</div>`)

	writePageFoot(&b)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func (a *App) handleAdminLogsCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 1000
	}

	logs, err := a.store.AuthenticationLogs(ctx, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="auth_logs.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "username", "action", "ip_address", "user_agent"}) //nolint:errcheck
	for _, entry := range logs {
		cw.Write([]string{ //nolint:errcheck
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Username,
			entry.Action,
			entry.IPAddress,
			entry.UserAgent,
		})
	}
	cw.Flush()
}
