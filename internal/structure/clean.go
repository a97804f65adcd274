package structure

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var pageArtifactRe = regexp.MustCompile(`(?:► )?Page \d+ ◄`)

// Clean normalizes extracted text to NFC, so accented keywords such as
// "première" match regardless of how the PDF encoded them, and strips the
// "► Page N ◄" / "Page N ◄" footers left by the extractor.
func Clean(text string) string {
	text = norm.NFC.String(text)
	return pageArtifactRe.ReplaceAllString(text, "")
}

// SplitLines cleans text and splits it into raw lines. Lines are not trimmed;
// callers trim as they read so that lookback windows see the original text.
func SplitLines(text string) []string {
	return strings.Split(Clean(text), "\n")
}
