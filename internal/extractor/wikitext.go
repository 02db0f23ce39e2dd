// Package extractor turns raw wikitext into candidate quote strings.
//
// It is a best-effort text cleaner, not a markup processor: malformed input
// yields fewer candidates, never an error.
package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MinQuoteLength = 12
	MaxQuoteLength = 240

	// upper bound on innermost-first template removal passes
	maxTemplateDepth = 8
)

var (
	bulletRe       = regexp.MustCompile(`^\*+\s*(.+)$`)
	selfClosingRef = regexp.MustCompile(`(?i)<ref[^>]*/>`)
	pairedRef      = regexp.MustCompile(`(?is)<ref[^>]*>.*?</ref>`)
	tagRe          = regexp.MustCompile(`</?[^>]+>`)
	templateRe     = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	labeledLinkRe  = regexp.MustCompile(`\[\[([^\]|]+)\|([^\]]+)\]\]`)
	plainLinkRe    = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	labeledExtRe   = regexp.MustCompile(`\[https?://[^\s\]]+\s+([^\]]+)\]`)
	bareExtRe      = regexp.MustCompile(`\[https?://[^\s\]]+\]`)
	emphasisRe     = regexp.MustCompile(`'{2,}`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

const quoteMarks = "“”\"'「」『』"

var sectionHeaders = []string{
	"see also",
	"external links",
	"references",
	"notes",
	"参见",
	"外部链接",
	"参考文献",
	"注释",
}

// Extract returns the candidate quotes of a page in first-seen order.
func Extract(wikitext string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(wikitext, "\n") {
		m := bulletRe.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		line := Normalize(CleanLine(m[1]))
		if !acceptable(line) {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

// CleanLine strips references, tags, templates, links and emphasis from one line.
func CleanLine(line string) string {
	s := selfClosingRef.ReplaceAllString(line, "")
	s = pairedRef.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	for i := 0; i < maxTemplateDepth; i++ {
		next := templateRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	s = labeledLinkRe.ReplaceAllString(s, "$2")
	s = plainLinkRe.ReplaceAllString(s, "$1")
	s = labeledExtRe.ReplaceAllString(s, "$1")
	s = bareExtRe.ReplaceAllString(s, "")
	s = emphasisRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Normalize collapses whitespace and trims enclosing quotation marks.
func Normalize(text string) string {
	// NFC so composed and decomposed spellings of a quote hash alike
	t := norm.NFC.String(text)
	t = spaceRe.ReplaceAllString(strings.TrimSpace(t), " ")
	t = strings.Trim(t, quoteMarks)
	return strings.TrimSpace(t)
}

func acceptable(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < MinQuoteLength || n > MaxQuoteLength {
		return false
	}
	low := strings.ToLower(line)
	for _, h := range sectionHeaders {
		if strings.HasPrefix(low, h) {
			return false
		}
	}
	return strings.IndexFunc(line, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
