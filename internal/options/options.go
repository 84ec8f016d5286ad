// Package options holds the persisted export settings and the coercion rules
// applied to them. Invalid input is replaced with safe defaults, never rejected.
package options

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency maps anything outside daily/weekly/monthly to Monthly.
func ParseFrequency(s string) Frequency {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly:
		return f
	default:
		return Monthly
	}
}

// Since returns the start of the trailing window ending at now.
func (f Frequency) Since(now time.Time) time.Time {
	switch f {
	case Daily:
		return now.AddDate(0, 0, -1)
	case Weekly:
		return now.AddDate(0, 0, -7)
	default:
		return monthBefore(now)
	}
}

// monthBefore steps back one calendar month, clamping the day to the length
// of the previous month (Mar 31 -> Feb 28) instead of overflowing into March.
func monthBefore(t time.Time) time.Time {
	y, m, d := t.Date()
	if last := time.Date(y, m, 0, 0, 0, 0, 0, t.Location()).Day(); d > last {
		d = last
	}
	return time.Date(y, m-1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Title is the capitalized name used in email subjects.
func (f Frequency) Title() string {
	s := string(ParseFrequency(string(f)))
	return strings.ToUpper(s[:1]) + s[1:]
}

// Options is the effective configuration of one run.
type Options struct {
	ExportEmails      string    `json:"export_emails"`
	TestEmail         string    `json:"test_email"`
	TestLimit         int       `json:"test_limit"`
	ScheduleFrequency Frequency `json:"schedule_frequency"`
}

// Input is the raw settings form; TestLimit may hold a number or a string.
type Input struct {
	ExportEmails      string `json:"export_emails"`
	TestEmail         string `json:"test_email"`
	TestLimit         any    `json:"test_limit"`
	ScheduleFrequency string `json:"schedule_frequency"`
}

// Defaults is what a run sees when nothing has been saved.
func Defaults() Options {
	return Validate(Input{})
}

// Validate coerces raw settings into Options.
func Validate(in Input) Options {
	return Options{
		ExportEmails:      sanitizeText(in.ExportEmails),
		TestEmail:         sanitizeText(in.TestEmail),
		TestLimit:         coerceLimit(in.TestLimit),
		ScheduleFrequency: ParseFrequency(in.ScheduleFrequency),
	}
}

// Input converts back to the raw form, so stored options can be re-validated.
func (o Options) Input() Input {
	return Input{
		ExportEmails:      o.ExportEmails,
		TestEmail:         o.TestEmail,
		TestLimit:         o.TestLimit,
		ScheduleFrequency: string(o.ScheduleFrequency),
	}
}

// Recipients splits the free-text recipient list on commas and semicolons.
func (o Options) Recipients() []string {
	var out []string
	for _, addr := range strings.FieldsFunc(o.ExportEmails, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

var leadingInt = regexp.MustCompile(`^[+-]?[0-9]+`)

// coerceLimit reads strings by their leading decimal digits ("12abc" is 12,
// "08" is 8); anything unusable or below one becomes 1.
func coerceLimit(v any) int {
	if s, ok := v.(string); ok {
		digits := leadingInt.FindString(strings.TrimSpace(s))
		if digits == "" {
			return 1
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n <= 0 {
			return 1
		}
		return n
	}
	n, err := cast.ToIntE(v)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// sanitizeText strips tags and collapses whitespace, including line breaks.
func sanitizeText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
