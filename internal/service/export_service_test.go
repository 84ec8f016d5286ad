package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "formexport/contracts/mq"
	"formexport/internal/export"
	"formexport/internal/mailer"
	"formexport/internal/model"
	"formexport/internal/options"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type memSource struct {
	forms map[int64][]model.SubmissionField
	ids   []int64
	err   error
	since time.Time
}

func (s *memSource) DistinctFormIDs(context.Context) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

func (s *memSource) ListFormFields(_ context.Context, formID int64, since time.Time) ([]model.SubmissionField, error) {
	s.since = since
	return s.forms[formID], nil
}

type titles map[int64]string

func (t titles) FormTitle(_ context.Context, formID int64) (string, error) {
	return t[formID], nil
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type recordingPublisher struct {
	keys     []string
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

// failingFs refuses to open files whose name contains "Broken".
type failingFs struct {
	afero.Fs
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.Contains(name, "Broken") {
		return nil, os.ErrPermission
	}
	return f.Fs.OpenFile(name, flag, perm)
}

type fixture struct {
	svc    *ExportService
	source *memSource
	fs     afero.Fs
	mail   *recordingMailer
	events *recordingPublisher
}

func newFixture(fs afero.Fs, source *memSource, formTitles titles) *fixture {
	clock := clockwork.NewFakeClockAt(now)
	log := zap.NewNop()
	f := &fixture{source: source, fs: fs, mail: &recordingMailer{}, events: &recordingPublisher{}}
	f.svc = NewExportService(
		export.NewFetcher(source, clock, log),
		export.NewTitleResolver(formTitles, log),
		export.NewCSVWriter(fs, "/plugin"),
		f.mail,
		f.events,
		"Acme",
		clock,
		log,
	)
	return f
}

func sub(entry int64, created time.Time, name, value string) model.SubmissionField {
	return model.SubmissionField{EntryID: entry, FormID: 7, CreatedAt: created, FieldName: name, FieldValue: value}
}

// scenarioSource is form 7 with e1 (name Ann, T1) and e2 (name Bo, email, T2 > T1).
func scenarioSource() *memSource {
	t1 := now.Add(-48 * time.Hour)
	t2 := now.Add(-24 * time.Hour)
	return &memSource{
		ids: []int64{7},
		forms: map[int64][]model.SubmissionField{7: {
			sub(2, t2, "name", "Bo"),
			sub(2, t2, "email", "b@x.com"),
			sub(1, t1, "name", "Ann"),
		}},
	}
}

func TestRunExportAndSend_Scenario(t *testing.T) {
	f := newFixture(afero.NewMemMapFs(), scenarioSource(), titles{7: "Contact Us"})
	opts := options.Options{ExportEmails: "a@acme.test, b@acme.test", TestEmail: "admin@acme.test", TestLimit: 1, ScheduleFrequency: options.Weekly}

	result, err := f.svc.RunExportAndSend(context.Background(), TriggerManual, opts, 0)
	require.NoError(t, err)

	require.Equal(t, []string{"/plugin/cf7_submissions_Contact-Us.csv"}, result.Files)
	data, err := afero.ReadFile(f.fs, result.Files[0])
	require.NoError(t, err)
	assert.Equal(t,
		"Entry ID,Submission Date,email,name\n"+
			"2,2026-10-15 12:00:00,b@x.com,Bo\n"+
			"1,2026-10-14 12:00:00,,Ann\n",
		string(data))

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, []string{"a@acme.test", "b@acme.test"}, msg.To)
	assert.Equal(t, "Weekly Form Submissions for Acme", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "<td style='text-align: left;'>Contact-Us</td><td style='text-align: left;'>2</td>")
	assert.Contains(t, msg.HTMLBody, "admin@acme.test")
	assert.Equal(t, result.Files, msg.Attachments)

	assert.True(t, result.Delivered)
	assert.Equal(t, 2, result.Submissions)
	require.Len(t, result.Forms, 1)
	assert.Equal(t, "Contact-Us", result.Forms[0].Title)
	assert.Equal(t, 2, result.Forms[0].Submissions)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{mqcontracts.RoutingExportCompleted}, f.events.keys)
	assert.Equal(t, now.AddDate(0, 0, -7), f.source.since)
}

func TestRunExportAndSend_NoRecipientsStillExports(t *testing.T) {
	f := newFixture(afero.NewMemMapFs(), scenarioSource(), titles{})

	result, err := f.svc.RunExportAndSend(context.Background(), TriggerSchedule, options.Defaults(), 0)
	require.NoError(t, err)

	assert.Empty(t, f.mail.sent)
	assert.False(t, result.Delivered)
	require.Len(t, result.Files, 1)
	exists, err := afero.Exists(f.fs, "/plugin/cf7_submissions_form_7.csv")
	require.NoError(t, err)
	assert.True(t, exists)
	// Absent frequency means a one-month window.
	assert.Equal(t, now.AddDate(0, -1, 0), f.source.since)
}

func TestRunExportAndSend_DeliveryFailure(t *testing.T) {
	f := newFixture(afero.NewMemMapFs(), scenarioSource(), titles{})
	f.mail.err = errors.New("smtp: 421")

	result, err := f.svc.RunExportAndSend(context.Background(), TriggerManual, options.Options{ExportEmails: "a@acme.test"}, 0)

	var deliveryErr *export.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Len(t, f.mail.sent, 1)
	assert.False(t, result.Delivered)
	require.Len(t, f.events.payloads, 1)
	assert.False(t, f.events.payloads[0].(mqcontracts.ExportCompletedPayload).Delivered)
}

func TestRunExportAndSend_RepositoryFailure(t *testing.T) {
	source := scenarioSource()
	source.err = errors.New("connection reset")
	f := newFixture(afero.NewMemMapFs(), source, titles{})

	_, err := f.svc.RunExportAndSend(context.Background(), TriggerManual, options.Options{ExportEmails: "a@acme.test"}, 0)

	var repoErr *export.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Empty(t, f.mail.sent)
	assert.Equal(t, []string{mqcontracts.RoutingExportFailed}, f.events.keys)
}

func TestRunExportAndSend_FilesystemFailureKeepsEarlierFiles(t *testing.T) {
	source := scenarioSource()
	source.ids = []int64{7, 8, 9}
	source.forms[8] = []model.SubmissionField{sub(5, now, "x", "1")}
	source.forms[9] = []model.SubmissionField{sub(6, now, "x", "1")}
	f := newFixture(failingFs{afero.NewMemMapFs()}, source, titles{7: "Good", 8: "Broken", 9: "Later"})

	result, err := f.svc.RunExportAndSend(context.Background(), TriggerManual, options.Options{ExportEmails: "a@acme.test"}, 0)

	var fsErr *export.FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, int64(8), fsErr.FormID)
	assert.Equal(t, []string{"/plugin/cf7_submissions_Good.csv"}, result.Files)
	assert.Empty(t, f.mail.sent)

	exists, _ := afero.Exists(f.fs, "/plugin/cf7_submissions_Later.csv")
	assert.False(t, exists)
}

func TestSendTest(t *testing.T) {
	source := scenarioSource()
	f := newFixture(afero.NewMemMapFs(), source, titles{7: "Contact Us"})
	opts := options.Options{ExportEmails: "team@acme.test", TestEmail: "admin@acme.test", TestLimit: 1}

	result, err := f.svc.SendTest(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, []string{"admin@acme.test"}, f.mail.sent[0].To)

	data, err := afero.ReadFile(f.fs, result.Files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "2,"), "most recent entry kept")
}

func TestSendTest_MissingTestEmail(t *testing.T) {
	f := newFixture(afero.NewMemMapFs(), scenarioSource(), titles{})

	_, err := f.svc.SendTest(context.Background(), options.Options{ExportEmails: "a@acme.test", TestLimit: 1})

	var cfgErr *export.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, f.mail.sent)
}

func TestRunExport(t *testing.T) {
	f := newFixture(afero.NewMemMapFs(), scenarioSource(), titles{7: "Contact Us"})

	files, err := f.svc.RunExport(context.Background(), options.Defaults(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/plugin/cf7_submissions_Contact-Us.csv"}, files)
	assert.Empty(t, f.mail.sent)
}

func TestRunExport_NoData(t *testing.T) {
	f := newFixture(afero.NewMemMapFs(), &memSource{ids: []int64{1}}, titles{})

	files, err := f.svc.RunExport(context.Background(), options.Defaults(), 0)
	require.NoError(t, err)
	assert.Empty(t, files)
}
