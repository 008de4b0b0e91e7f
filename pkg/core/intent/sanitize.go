package intent

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxUtteranceLength caps a sanitized utterance, in characters.
const MaxUtteranceLength = 2500

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips HTML markup, trims surrounding space and caps the length.
// Entities are decoded. Text after a "<" with no closing ">" is kept as typed,
// since the HTML tokenizer would drop it.
func Sanitize(text string) string {
	var plain string
	if unclosedTag(text) {
		plain = tagPattern.ReplaceAllString(text, "")
	} else if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
		plain = doc.Text()
	} else {
		plain = tagPattern.ReplaceAllString(text, "")
	}
	plain = strings.TrimSpace(plain)

	runes := []rune(plain)
	if len(runes) > MaxUtteranceLength {
		plain = string(runes[:MaxUtteranceLength])
	}
	return plain
}

func unclosedTag(text string) bool {
	return strings.LastIndex(text, "<") > strings.LastIndex(text, ">")
}
