package notify

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/ngoyal88/lens/pkg/report"
)

// HTMLChannel renders the report to a static HTML file on disk. Serving or
// mailing the file is left to external tooling.
type HTMLChannel struct {
	outputPath string
}

// NewHTMLChannel creates an HTML report writer targeting outputPath.
func NewHTMLChannel(outputPath string) *HTMLChannel {
	return &HTMLChannel{outputPath: outputPath}
}

func (c *HTMLChannel) Name() string {
	return "html-report"
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Endpoint Usage Report</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
.summary { background: #f4f6f8; padding: 1rem; border-radius: 6px; }
table { border-collapse: collapse; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
.recommendations li { margin-bottom: 0.3rem; }
</style>
</head>
<body>
<h1>Endpoint Usage Report</h1>
<p>Generated at {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>
<div class="summary">
<strong>{{.Summary.TotalEndpoints}}</strong> endpoints tracked,
<strong>{{.Summary.UnusedCount}}</strong> unused ({{.Summary.UnusedPercentage}}%),
<strong>{{.Summary.SlowCount}}</strong> slow,
<strong>{{.Summary.HighErrorCount}}</strong> with elevated error rates.
Threshold: {{.Summary.DaysThreshold}} days.
</div>
{{if .UnusedEndpoints}}
<h2>Unused Endpoints</h2>
<table>
<tr><th>Method</th><th>Path</th><th>Days Since Last Use</th><th>Total Requests</th></tr>
{{range .UnusedEndpoints}}
<tr><td>{{.Method}}</td><td>{{.Path}}</td><td>{{printf "%.1f" .DaysSinceLastUse}}</td><td>{{.TotalRequests}}</td></tr>
{{end}}
</table>
{{end}}
{{if .Recommendations}}
<h2>Recommendations</h2>
<ul class="recommendations">
{{range .Recommendations}}<li>{{.}}</li>
{{end}}</ul>
{{end}}
</body>
</html>
`))

// Send renders the report and writes it atomically via a temp file rename.
func (c *HTMLChannel) Send(_ context.Context, rep *report.UsageReport) error {
	dir := filepath.Dir(c.outputPath)
	tmp, err := os.CreateTemp(dir, "usage-report-*.html")
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	if err := reportTemplate.Execute(tmp, rep); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("render report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.outputPath)
}
