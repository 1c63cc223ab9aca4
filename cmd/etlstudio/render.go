package main

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// ─────────────────────────────────────────────────────────────────────────────
// Shared HTML helpers
// ─────────────────────────────────────────────────────────────────────────────

func commonCSS() string {
	return `<style>
  * { box-sizing:border-box; margin:0; padding:0; }
  body { font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,sans-serif; background:#0f1117; color:#e2e8f0; min-height:100vh; padding:24px; }
  .container { max-width:1600px; margin:0 auto; }
  .navbar {
    display:flex; align-items:center; gap:14px; margin-bottom:24px;
    padding-bottom:16px; border-bottom:1px solid #1e293b;
  }
  .nav-home  { color:#60a5fa; text-decoration:none; font-weight:700; font-size:18px; }
  .nav-home:hover { color:#93c5fd; }
  .nav-link  { color:#94a3b8; text-decoration:none; font-size:14px; font-weight:500; }
  .nav-link:hover { color:#e2e8f0; }
  .nav-link.active { color:#f1f5f9; font-weight:700; }
  .nav-right { margin-left:auto; display:flex; align-items:center; gap:12px; font-size:13px; color:#64748b; }
  .badge { display:inline-flex; align-items:center; gap:6px; padding:4px 10px; border-radius:20px; font-size:12px; font-weight:600; }
  .badge-kind  { background:#1e3a5f; color:#60a5fa; }
  .badge-admin { background:#2d1b69; color:#a78bfa; }
  .header-card { background:linear-gradient(135deg,#1e293b 0%,#0f172a 100%); border:1px solid #334155; border-radius:12px; padding:24px 28px; margin-bottom:20px; }
  .header-top  { display:flex; align-items:center; gap:16px; flex-wrap:wrap; margin-bottom:16px; }
  .table-name  { font-size:26px; font-weight:700; color:#f1f5f9; }
  .meta-grid   { display:grid; grid-template-columns:repeat(auto-fill,minmax(200px,1fr)); gap:12px; }
  .meta-item   { display:flex; flex-direction:column; gap:2px; }
  .meta-label  { font-size:11px; font-weight:600; color:#64748b; text-transform:uppercase; letter-spacing:.05em; }
  .meta-value  { font-size:13px; color:#cbd5e1; font-family:monospace; word-break:break-all; }
  .card        { background:#1e293b; border:1px solid #334155; border-radius:12px; margin-bottom:20px; overflow:hidden; }
  .card-header { padding:14px 20px; border-bottom:1px solid #334155; font-size:14px; font-weight:600; color:#94a3b8; display:flex; align-items:center; gap:10px; background:#0f172a; }
  .card-body   { padding:20px; }
  .pill        { background:#334155; color:#94a3b8; padding:2px 8px; border-radius:10px; font-size:11px; font-weight:600; }
  .form-grid   { display:flex; flex-direction:column; gap:14px; max-width:460px; }
  .form-row    { display:flex; flex-direction:column; gap:4px; }
  .form-label  { font-size:11px; font-weight:600; color:#64748b; text-transform:uppercase; letter-spacing:.05em; }
  .form-input, .form-select, .form-area {
    background:#0f172a; border:1px solid #334155; border-radius:6px;
    color:#e2e8f0; padding:8px 10px; font-size:13px;
    outline:none; transition:border-color .15s;
  }
  .form-input:focus, .form-area:focus { border-color:#3b82f6; }
  .form-area   { font-family:monospace; min-height:120px; resize:vertical; }
  .btn {
    padding:8px 18px; border-radius:6px; font-size:13px; font-weight:600;
    cursor:pointer; border:none; transition:opacity .15s; text-decoration:none; display:inline-block;
  }
  .btn:hover { opacity:.85; }
  .btn-primary { background:#2563eb; color:#fff; }
  .btn-danger  { background:#7f1d1d; color:#fca5a5; }
  .btn-ghost   { background:#1e293b; color:#94a3b8; border:1px solid #334155; }
  .flash-ok  { background:#0d2019; border:1px solid #34d399; border-radius:8px; padding:10px 16px; margin-bottom:16px; color:#34d399; font-size:13px; }
  .flash-err { background:#3a1a1a; border:1px solid #f87171; border-radius:8px; padding:10px 16px; margin-bottom:16px; color:#f87171; font-size:13px; }
  .data-wrapper { overflow-x:auto; }
  .data-table { width:100%; border-collapse:collapse; font-size:13px; }
  .data-table th {
    padding:10px 14px; text-align:left;
    font-size:11px; font-weight:600; color:#475569;
    text-transform:uppercase; letter-spacing:.04em;
    border-bottom:2px solid #334155; background:#0f172a;
    white-space:nowrap; position:sticky; top:0; z-index:10;
  }
  .data-table td {
    padding:8px 14px; border-bottom:1px solid #1e293b;
    font-family:monospace; color:#cbd5e1;
    max-width:320px; overflow:hidden; text-overflow:ellipsis; white-space:nowrap;
  }
  .data-table tr:hover td { background:#1e2d42; }
  .data-table tr:nth-child(even) td { background:#18222f; }
  .data-table tr:nth-child(even):hover td { background:#1e2d42; }
  .null-val  { color:#475569; font-style:italic; }
  .num-val   { color:#60a5fa; }
  .bool-true { color:#34d399; }
  .bool-false{ color:#f87171; }
  .row-num   { color:#475569; text-align:right; user-select:none; font-size:11px; }
  .stats-bar   { display:flex; gap:24px; flex-wrap:wrap; padding:12px 20px; background:#0f172a; border-top:1px solid #334155; font-size:12px; color:#64748b; }
  .stats-bar span { display:flex; align-items:center; gap:6px; }
  .stats-bar strong { color:#94a3b8; }
  .bar-track { background:#0f172a; border-radius:4px; height:8px; overflow:hidden; min-width:120px; }
  .bar-fill  { height:100%; background:#2563eb; }
  .footer      { text-align:center; padding:20px; font-size:11px; color:#334155; }
  .footer a    { color:#475569; text-decoration:none; }
</style>`
}

// writePageHead открывает документ с общим CSS
func writePageHead(b *strings.Builder, title string) {
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>` + html.EscapeString(title) + `</title>
` + commonCSS() + `
</head>
<body>
<div class="container">
`)
}

func writePageFoot(b *strings.Builder) {
	b.WriteString(`<div class="footer">ETL Studio</div>`)
	b.WriteString(`</div></body></html>`)
}

// writeNavbar рисует навигацию; active подсвечивает текущий раздел
func (a *App) writeNavbar(b *strings.Builder, sess *Session, active string) {
	b.WriteString(`<div class="navbar">`)
	b.WriteString(`<a class="nav-home" href="/">` + html.EscapeString(a.cfg.Server.Name) + `</a>`)

	if sess != nil {
		links := []struct{ href, label string }{
			{"/", "Datasets"},
			{"/ingest", "Ingest"},
			{"/query", "SQL"},
			{"/history", "History"},
		}
		for _, l := range links {
			cls := "nav-link"
			if l.href == active {
				cls += " active"
			}
			b.WriteString(`<a class="` + cls + `" href="` + l.href + `">` + l.label + `</a>`)
		}
		if sess.User.IsAdmin {
			cls := "nav-link"
			if active == "/admin" {
				cls += " active"
			}
			b.WriteString(`<a class="` + cls + `" href="/admin">Admin</a>`)
		}

		b.WriteString(`<div class="nav-right">`)
		b.WriteString(`<span>` + html.EscapeString(sess.User.Username) + `</span>`)
		if sess.User.IsAdmin {
			b.WriteString(`<span class="badge badge-admin">ADMIN</span>`)
		}
		b.WriteString(`<a class="nav-link" href="/password">Password</a>`)
		b.WriteString(`<form method="POST" action="/logout" style="display:inline;">` +
			`<button class="btn btn-ghost" type="submit">Logout</button></form>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
}

// writeFlash показывает однострочные сообщения из query параметров
func writeFlash(b *strings.Builder, r *http.Request) {
	if msg := r.URL.Query().Get("msg"); msg != "" {
		b.WriteString(`<div class="flash-ok">` + html.EscapeString(msg) + `</div>`)
	}
	if msg := r.URL.Query().Get("err"); msg != "" {
		b.WriteString(`<div class="flash-err">` + html.EscapeString(msg) + `</div>`)
	}
}

func writeMetaItem(b *strings.Builder, label, value string) {
	b.WriteString(`<div class="meta-item">`)
	b.WriteString(`<span class="meta-label">` + html.EscapeString(label) + `</span>`)
	b.WriteString(`<span class="meta-value">` + html.EscapeString(value) + `</span>`)
	b.WriteString(`</div>`)
}

// writeDataTable рендерит таблицу с подсветкой типов, не больше limit строк
func writeDataTable(b *strings.Builder, t *table.Table, limit int) {
	rows := t.Rows
	truncated := false
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		truncated = true
	}

	b.WriteString(`<div class="data-wrapper"><table class="data-table"><thead><tr>`)
	b.WriteString(`<th class="row-num">#</th>`)
	for _, col := range t.Columns {
		b.WriteString(fmt.Sprintf(`<th>%s<br><small>%s</small></th>`,
			html.EscapeString(col.Name), html.EscapeString(string(col.Kind))))
	}
	b.WriteString(`</tr></thead><tbody>`)

	for i, row := range rows {
		b.WriteString(`<tr>`)
		b.WriteString(fmt.Sprintf(`<td class="row-num">%d</td>`, i+1))
		for j, cell := range row {
			if !cell.Valid {
				b.WriteString(`<td><span class="null-val">NULL</span></td>`)
				continue
			}
			switch t.Columns[j].Kind {
			case table.KindInteger, table.KindFloat:
				b.WriteString(`<td class="num-val">` + html.EscapeString(cell.Value) + `</td>`)
			case table.KindBoolean:
				cls := "bool-false"
				if cell.Value == "true" || cell.Value == "1" {
					cls = "bool-true"
				}
				b.WriteString(`<td><span class="` + cls + `">` + html.EscapeString(cell.Value) + `</span></td>`)
			default:
				b.WriteString(`<td>` + html.EscapeString(cell.Value) + `</td>`)
			}
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></div>`)

	if truncated {
		b.WriteString(fmt.Sprintf(`<div class="stats-bar"><span>first <strong>%d</strong> of <strong>%d</strong> rows shown</span></div>`,
			limit, t.NumRows()))
	}
}

// writeBar рисует прогресс-бар для процентного значения
func writeBar(b *strings.Builder, pct float64) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	b.WriteString(`<div class="bar-track"><div class="bar-fill" style="width:` +
		strconv.FormatFloat(pct, 'f', 1, 64) + `%"></div></div>`)
}

// redirectMsg перенаправляет с flash сообщением
func redirectMsg(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?msg="+urlEscape(msg), http.StatusFound)
}

// redirectErr перенаправляет с сообщением об ошибке
func redirectErr(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?err="+urlEscape(msg), http.StatusFound)
}

func urlEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
