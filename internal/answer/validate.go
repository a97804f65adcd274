package answer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxQuestionLen = 2000

var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrQuestionTooLong = errors.New("question too long")
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|forget\s+(everything|all)|new\s+instructions|` +
		`ignorez?\s+(les\s+)?instructions|oubliez?\s+tout|nouvelles\s+instructions)`,
)

// CleanQuestion trims q and rejects empty or oversized questions. suspicious
// reports phrasing that tries to override the assistant's instructions; the
// caller decides what to do with it.
func CleanQuestion(q string) (cleaned string, suspicious bool, err error) {
	cleaned = strings.Join(strings.Fields(q), " ")
	if cleaned == "" {
		return "", false, ErrEmptyQuestion
	}
	if n := utf8.RuneCountInString(cleaned); n > MaxQuestionLen {
		return "", false, fmt.Errorf("%w: %d characters (max %d)", ErrQuestionTooLong, n, MaxQuestionLen)
	}
	return cleaned, injectionPattern.MatchString(cleaned), nil
}
