package httpapi

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/hamed0406/httpwatchdog/internal/domain"
)

const pageTitle = "HTTP watchdog report"

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { padding: 4px 12px; border-bottom: 1px solid #ddd; text-align: left; }
.match { color: #2a7a2a; }
.no-match { color: #b36b00; }
.http-error, .connection-error { color: #b00020; }
.not-probed-yet { color: #777; }
</style>
</head>
<body>
{{template "body" .}}
</body>
</html>
{{end}}`

const reportHTML = `{{define "body"}}<h1>{{.Title}}</h1>
<table>
<thead><tr><th>URL</th><th>Status</th><th>Details</th><th>Request time</th><th>Last checked</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
  <td><a href="{{.URL}}">{{.URL}}</a></td>
  <td class="{{.Class}}">{{.Label}}</td>
  <td>{{.Detail}}</td>
  <td>{{.RequestTime}}</td>
  <td title="{{.CheckedAt}}">{{.Age}}</td>
</tr>
{{end}}</tbody>
</table>
{{end}}`

const notFoundHTML = `{{define "body"}}<h1>Not found</h1>
<p>There is nothing here. The report is at <a href="{{.ReportPath}}">{{.ReportPath}}</a>.</p>
{{end}}`

var (
	reportTmpl   = template.Must(template.Must(template.New("report").Parse(layoutHTML)).Parse(reportHTML))
	notFoundTmpl = template.Must(template.Must(template.New("notfound").Parse(layoutHTML)).Parse(notFoundHTML))
)

type reportRow struct {
	URL         string
	Label       string
	Class       string
	Detail      string
	RequestTime string
	CheckedAt   string
	Age         string
}

func newReportRow(e domain.Entry, now time.Time) reportRow {
	label := e.Status.Verdict.Kind.Label()
	row := reportRow{
		URL:   e.Spec.URL,
		Label: label,
		Class: strings.ReplaceAll(strings.ToLower(label), " ", "-"),
	}
	if !e.Status.Probed() {
		row.CheckedAt = label
		return row
	}
	row.Detail = e.Status.Verdict.Detail()
	row.RequestTime = fmt.Sprintf("%d ms", e.Status.Elapsed.Milliseconds())
	row.CheckedAt = e.Status.LastChecked.UTC().Format("2006-01-02 15:04:05") + " UTC"
	row.Age = fmt.Sprintf("%d seconds ago", int(now.Sub(e.Status.LastChecked).Round(time.Second)/time.Second))
	return row
}

func renderReport(w io.Writer, entries []domain.Entry, now time.Time) error {
	rows := make([]reportRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, newReportRow(e, now))
	}
	return reportTmpl.ExecuteTemplate(w, "layout", struct {
		Title string
		Rows  []reportRow
	}{pageTitle, rows})
}

func renderNotFound(w io.Writer, reportPath string) error {
	return notFoundTmpl.ExecuteTemplate(w, "layout", struct {
		Title      string
		ReportPath string
	}{pageTitle, reportPath})
}
