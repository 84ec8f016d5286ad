package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"formexport/pkg/config"
)

func TestBuildMessage(t *testing.T) {
	mm, err := buildMessage("exports@acme.test", Message{
		To:          []string{"a@acme.test", "b@acme.test"},
		Subject:     "Monthly Form Submissions for Acme",
		HTMLBody:    "<p>hi</p>",
		Attachments: []string{"/tmp/exports/cf7_submissions_Contact-Us.csv"},
	})
	require.NoError(t, err)

	recipients, err := mm.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@acme.test", "b@acme.test"}, recipients)
	assert.Equal(t, []string{"Monthly Form Submissions for Acme"}, mm.GetGenHeader(mail.HeaderSubject))
	require.Len(t, mm.GetAttachments(), 1)
	assert.Equal(t, "cf7_submissions_Contact-Us.csv", mm.GetAttachments()[0].Name)
}

func TestBuildMessage_Errors(t *testing.T) {
	_, err := buildMessage("exports@acme.test", Message{})
	assert.Error(t, err)

	_, err = buildMessage("not an address", Message{To: []string{"a@acme.test"}})
	assert.Error(t, err)

	_, err = buildMessage("exports@acme.test", Message{To: []string{"@@"}})
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "localhost", Port: 1025, TLS: "none"}, zap.NewNop())
	assert.Len(t, m.clientOptions(), 2)

	m = NewSMTPMailer(config.SMTPConfig{Host: "localhost", Port: 587, Username: "u", Password: "p"}, zap.NewNop())
	assert.Len(t, m.clientOptions(), 5)

	_, err := mail.NewClient("localhost", m.clientOptions()...)
	assert.NoError(t, err)
}
