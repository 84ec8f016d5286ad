package export

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// TitleSource looks up the stored title of a form.
type TitleSource interface {
	FormTitle(ctx context.Context, formID int64) (string, error)
}

// TitleResolver turns form ids into file-safe names.
type TitleResolver struct {
	source TitleSource
	logger *zap.Logger
}

func NewTitleResolver(source TitleSource, logger *zap.Logger) *TitleResolver {
	return &TitleResolver{source: source, logger: logger}
}

// Resolve returns the sanitized title, or "form_<id>" when the title is
// missing, unreadable or sanitizes to nothing.
func (r *TitleResolver) Resolve(ctx context.Context, formID int64) string {
	fallback := "form_" + strconv.FormatInt(formID, 10)

	title, err := r.source.FormTitle(ctx, formID)
	if err != nil {
		r.logger.Warn("Failed to look up form title, using fallback",
			zap.Int64("form_id", formID),
			zap.Error(err),
		)
		return fallback
	}
	if name := SanitizeFileName(title); name != "" {
		return name
	}
	return fallback
}

var (
	specialChars   = regexp.MustCompile("[?\\[\\]/\\\\=<>:;,'\"&$#*()|~`!{}%+’«»”“\\x00]")
	whitespaceRuns = regexp.MustCompile(`[\r\n\t -]+`)
)

// SanitizeFileName drops characters that are unsafe in file names and joins
// words with dashes.
func SanitizeFileName(s string) string {
	s = specialChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, ".-_")
}
