package export

import (
	"bytes"
	"fmt"
	"html/template"

	"formexport/internal/options"
)

type FormSummary struct {
	Title       string
	Submissions int
}

type SummaryInput struct {
	Frequency    options.Frequency
	SiteName     string
	ContactEmail string
	Forms        []FormSummary
}

var summaryTemplate = template.Must(template.New("summary").Parse(
	`Here's a {{.Period}} update on the form submissions for {{.SiteName}}:<br><br>` +
		`<table border='1' cellpadding='5' cellspacing='0' style='text-align: left;'>` +
		`<tr><th style='text-align: left;'>Form Name</th><th style='text-align: left;'>Total {{.FrequencyTitle}} Submissions</th></tr>` +
		`{{range .Forms}}<tr><td style='text-align: left;'>{{.Title}}</td><td style='text-align: left;'>{{.Submissions}}</td></tr>{{end}}` +
		`</table><br><br>` +
		`For further information about the export, please reach out to {{.ContactEmail}}.`,
))

// ComposeSummary builds the subject and HTML body of the export email.
func ComposeSummary(in SummaryInput) (string, string, error) {
	freq := options.ParseFrequency(string(in.Frequency))
	subject := fmt.Sprintf("%s Form Submissions for %s", freq.Title(), in.SiteName)

	var body bytes.Buffer
	err := summaryTemplate.Execute(&body, struct {
		SummaryInput
		Period         string
		FrequencyTitle string
	}{
		SummaryInput:   in,
		Period:         string(freq),
		FrequencyTitle: freq.Title(),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render summary: %w", err)
	}
	return subject, body.String(), nil
}
