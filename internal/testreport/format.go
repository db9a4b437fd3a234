package testreport

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// SlowThreshold marks tests slower than this many seconds.
const SlowThreshold = 1.0

// Formatter renders a Report to a writer.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// NewFormatter returns a formatter for the given format name.
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return &JSONFormatter{}, nil
	case "yaml", "yml":
		return &YAMLFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s (supported: json, yaml, markdown, html)", format)
	}
}

// ---------------------------------------------------------------------------
// JSON / YAML
// ---------------------------------------------------------------------------

// JSONFormatter renders the report as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(r)
}

// YAMLFormatter renders the report as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return err
	}

	return enc.Close()
}

// ---------------------------------------------------------------------------
// Markdown
// ---------------------------------------------------------------------------

var statusEmoji = map[Status]string{
	StatusPassed:  "✅",
	StatusFailed:  "❌",
	StatusIgnored: "⏭",
	StatusTimeout: "⏱",
}

// MarkdownFormatter renders the report as Markdown.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, r *Report) error {
	s := r.Summary

	fmt.Fprintln(w, "# Test Execution Report")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- **Total Tests**: %d\n", s.Total)
	fmt.Fprintf(w, "- **✅ Passed**: %d\n", s.Passed)
	fmt.Fprintf(w, "- **❌ Failed**: %d\n", s.Failed)
	fmt.Fprintf(w, "- **⏭ Ignored**: %d\n", s.Ignored)
	fmt.Fprintf(w, "- **⏱ Timeout**: %d\n", s.Timeout)
	fmt.Fprintf(w, "- **Success Rate**: %.2f%%\n", s.SuccessRate)
	fmt.Fprintf(w, "- **Duration**: %.2fs\n", s.DurationSecs)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Test Cases")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Test Name | Module | Status | Duration |")
	fmt.Fprintln(w, "|-----------|--------|--------|----------|")

	for _, c := range r.Cases {
		fmt.Fprintf(w, "| `%s` | %s | %s %s | %.3fs |\n", c.Name, c.Module, statusEmoji[c.Status], c.Status, c.DurationSecs)
	}

	return nil
}

// ---------------------------------------------------------------------------
// HTML
// ---------------------------------------------------------------------------

// HTMLFormatter renders the report as a standalone HTML page.
type HTMLFormatter struct{}

var htmlTpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": func(s Status) string { return strings.ToLower(string(s)) },
	"slow":  func(d float64) bool { return d > SlowThreshold },
	"label": statusLabel,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Test Report</title>
<style>
body{font-family:sans-serif;margin:2em;background:#f5f5f5}
.container{max-width:1200px;margin:0 auto;background:#fff;padding:20px;border-radius:5px}
.stats{display:flex;flex-wrap:wrap;gap:20px}
.stat{display:flex;flex-direction:column;align-items:center;padding:15px;min-width:100px}
.stat-value{font-size:28px;font-weight:bold}
.passed{color:#28a745}.failed{color:#dc3545}.ignored{color:#ffc107}.timeout{color:#fd7e14}
table{width:100%;border-collapse:collapse;margin-top:20px}
th,td{padding:12px;text-align:left;border-bottom:1px solid #ddd}
th{background:#4caf50;color:#fff}
.test-name{font-family:monospace;font-size:13px}
.error-message{color:#dc3545;font-family:monospace;font-size:12px;white-space:pre-wrap}
.status-passed{background:#d4edda}.status-failed{background:#f8d7da}
.status-ignored{background:#fff3cd}.status-timeout{background:#ffeaa7}
.slow-test{background:#fff3cd;font-weight:bold}
</style>
</head>
<body>
<div class="container">
<h1>Test Execution Report</h1>
<h2>Summary</h2>
<div class="stats">
<div class="stat"><div class="stat-value passed">{{.Summary.Passed}}</div><div>Passed</div></div>
<div class="stat"><div class="stat-value failed">{{.Summary.Failed}}</div><div>Failed</div></div>
<div class="stat"><div class="stat-value ignored">{{.Summary.Ignored}}</div><div>Ignored</div></div>
<div class="stat"><div class="stat-value timeout">{{.Summary.Timeout}}</div><div>Timeout</div></div>
<div class="stat"><div class="stat-value">{{.Summary.Total}}</div><div>Total</div></div>
<div class="stat"><div class="stat-value">{{printf "%.2f" .Summary.SuccessRate}}%</div><div>Success Rate</div></div>
<div class="stat"><div class="stat-value">{{printf "%.2f" .Summary.DurationSecs}}s</div><div>Duration</div></div>
</div>
<h2>Test Cases</h2>
<table>
<tr><th>Test Name</th><th>Module</th><th>Status</th><th>Duration</th><th>Error</th></tr>
{{range .Cases}}<tr{{if slow .DurationSecs}} class="slow-test"{{end}}><td class="test-name">{{.Name}}</td><td>{{.Module}}</td><td><span class="status-{{lower .Status}}">{{label .Status}}</span></td><td>{{printf "%.3f" .DurationSecs}}s{{if slow .DurationSecs}} ⚠{{end}}</td><td>{{if .ErrorMessage}}<div class="error-message">{{.ErrorMessage}}</div>{{end}}</td></tr>
{{end}}</table>
</div>
</body>
</html>
`))

func statusLabel(s Status) string {
	switch s {
	case StatusPassed:
		return "✓ Passed"
	case StatusFailed:
		return "✗ Failed"
	case StatusIgnored:
		return "⊘ Ignored"
	case StatusTimeout:
		return "⏱ Timeout"
	default:
		return string(s)
	}
}

func (f *HTMLFormatter) Format(w io.Writer, r *Report) error {
	return htmlTpl.Execute(w, r)
}
