package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type titleMap map[int64]string

func (m titleMap) FormTitle(_ context.Context, formID int64) (string, error) {
	if formID < 0 {
		return "", errors.New("db down")
	}
	return m[formID], nil
}

func TestTitleResolver(t *testing.T) {
	r := NewTitleResolver(titleMap{7: "Contact Us!", 8: "???"}, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, "Contact-Us", r.Resolve(ctx, 7))
	assert.Equal(t, "form_8", r.Resolve(ctx, 8))
	assert.Equal(t, "form_9", r.Resolve(ctx, 9))
	assert.Equal(t, "form_-1", r.Resolve(ctx, -1))
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Contact Us":          "Contact-Us",
		"  Job  Application ": "Job-Application",
		"a/b\\c:d":            "abcd",
		"Quote -- Request":    "Quote-Request",
		"..hidden.":           "hidden",
		"Café Feedback":       "Café-Feedback",
		"<>":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFileName(in), in)
	}
}
