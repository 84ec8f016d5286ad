package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formexport/internal/options"
)

func TestComposeSummary(t *testing.T) {
	in := SummaryInput{
		Frequency:    options.Weekly,
		SiteName:     "Acme",
		ContactEmail: "admin@acme.test",
		Forms: []FormSummary{
			{Title: "Contact-Us", Submissions: 3},
			{Title: "form_9", Submissions: 1},
		},
	}

	subject, body, err := ComposeSummary(in)
	require.NoError(t, err)

	assert.Equal(t, "Weekly Form Submissions for Acme", subject)
	assert.Contains(t, body, "Here's a weekly update on the form submissions for Acme:")
	assert.Contains(t, body, "Total Weekly Submissions")
	assert.Contains(t, body, "<td style='text-align: left;'>Contact-Us</td><td style='text-align: left;'>3</td>")
	assert.Contains(t, body, "<td style='text-align: left;'>form_9</td><td style='text-align: left;'>1</td>")
	assert.Contains(t, body, "please reach out to admin@acme.test.")

	again, body2, err := ComposeSummary(in)
	require.NoError(t, err)
	assert.Equal(t, subject, again)
	assert.Equal(t, body, body2)
}

func TestComposeSummary_DefaultsToMonthlyAndEscapes(t *testing.T) {
	subject, body, err := ComposeSummary(SummaryInput{SiteName: "A&B", Forms: []FormSummary{{Title: "<x>", Submissions: 1}}})
	require.NoError(t, err)

	assert.Equal(t, "Monthly Form Submissions for A&B", subject)
	assert.Contains(t, body, "A&amp;B")
	assert.Contains(t, body, "&lt;x&gt;")
}
