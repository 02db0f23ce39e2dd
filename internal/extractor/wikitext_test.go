package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_MarkupStripping(t *testing.T) {
	got := Extract("* A ''wise'' [[man|sage]] once said <ref>cite</ref> something.")
	assert.Equal(t, []string{"A wise sage once said something."}, got)
}

func TestExtract_LengthBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   bool
	}{
		{"eleven rejected", 11, false},
		{"twelve accepted", 12, true},
		{"max accepted", 240, true},
		{"over max rejected", 241, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			got := Extract("* " + text)
			if tt.want {
				assert.Equal(t, []string{text}, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestExtract_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("学", 12)
	assert.Equal(t, []string{text}, Extract("*"+text))
	assert.Empty(t, Extract("*"+strings.Repeat("学", 11)))
}

func TestExtract_SectionHeaders(t *testing.T) {
	page := strings.Join([]string{
		"* See also",
		"* See also the collected works of the author",
		"* External links and other sources",
		"* References for this page are below",
		"* Notes on the translation of this work",
		"* 参见：其他相关条目的列表和说明",
	}, "\n")
	assert.Empty(t, Extract(page))
}

func TestExtract_RejectsPunctuationOnly(t *testing.T) {
	assert.Empty(t, Extract("* ...... !!!! ???? ----"))
	assert.Empty(t, Extract("* {{citation needed}} <ref>x</ref> ............"))
}

func TestExtract_KeepsOnlyBullets(t *testing.T) {
	page := "== Quotes ==\nThis is a paragraph and not a quote at all.\n" +
		": an indented line that is also not a quote\n" +
		"** Nested bullet lines are accepted too."
	assert.Equal(t, []string{"Nested bullet lines are accepted too."}, Extract(page))
}

func TestExtract_DeduplicatesWithinPage(t *testing.T) {
	page := "* The only thing we have to fear is fear itself.\n" +
		"* Ask not what your country can do for you.\n" +
		"*  The only thing we have to fear is   fear itself. \n"
	assert.Equal(t, []string{
		"The only thing we have to fear is fear itself.",
		"Ask not what your country can do for you.",
	}, Extract(page))
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[[Albert Einstein]] said it first", "Albert Einstein said it first"},
		{"read [https://example.org the essay] today", "read the essay today"},
		{"see [https://example.org] now", "see now"},
		{"'''Bold''' and ''italic''", "Bold and italic"},
		{"text {{lang|fr|{{nested}}}} end", "text end"},
		{`kept<ref name="a" /> words`, "kept words"},
		{`a <ref name="x">long\ncite</ref>b`, "a b"},
		{"<span style=\"x\">styled</span> text", "styled text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanLine(tt.in), tt.in)
	}
}

func TestNormalize_TrimsQuotationMarks(t *testing.T) {
	assert.Equal(t, "Quoted text", Normalize(`  “Quoted   text”  `))
	assert.Equal(t, "学而时习之", Normalize("「学而时习之」"))
	assert.Equal(t, "plain", Normalize(`"plain"`))
}

func TestExtract_MalformedMarkupDoesNotPanic(t *testing.T) {
	inputs := []string{
		"",
		"*",
		"* [[unterminated link and some more words",
		"* {{{{{{ broken templates }}",
		"* <ref>never closed and a long enough line",
		"\x00\x01*\n*\t\t",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Extract(in) })
	}
}

func TestNormalize_ComposesUnicode(t *testing.T) {
	decomposed := "Cafe\u0301 society is a dying art."
	composed := "Caf\u00e9 society is a dying art."
	assert.Equal(t, composed, Normalize(decomposed))
	assert.Equal(t, Extract("* "+composed), Extract("* "+decomposed))
}
