package linkify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejoin(frags []Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.Content)
	}
	return b.String()
}

func TestSplitNoLinks(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"no urls here, just text with punctuation!",
		"Посетите наш офис",
	}
	for _, in := range inputs {
		frags := Split(in)
		require.Len(t, frags, 1)
		assert.Equal(t, KindText, frags[0].Kind)
		assert.Equal(t, in, frags[0].Content)
	}
}

func TestSplitSingleURL(t *testing.T) {
	frags := Split("see https://example.com for details")

	require.Len(t, frags, 3)
	assert.Equal(t, Fragment{Kind: KindText, Content: "see "}, frags[0])
	assert.Equal(t, KindLink, frags[1].Kind)
	assert.Equal(t, "https://example.com", frags[1].Content)
	assert.Equal(t, "https://example.com", frags[1].Href)
	assert.Equal(t, Fragment{Kind: KindText, Content: " for details"}, frags[2])
	assert.Equal(t, "see https://example.com for details", rejoin(frags))
}

func TestSplitURLAtBoundaries(t *testing.T) {
	frags := Split("https://example.com")
	require.Len(t, frags, 1)
	assert.Equal(t, KindLink, frags[0].Kind)

	frags = Split("https://a.com and https://b.com")
	require.Len(t, frags, 3)
	assert.Equal(t, "https://a.com", frags[0].Href)
	assert.Equal(t, "https://b.com", frags[2].Href)
}

func TestTelegramNormalization(t *testing.T) {
	cases := []string{
		"t.me/handle",
		"@t.me/handle",
		"https://t.me/handle",
	}
	for _, in := range cases {
		frags := Split(in)
		require.Len(t, frags, 1, "input %q", in)
		assert.Equal(t, KindLink, frags[0].Kind)
		assert.Equal(t, "https://t.me/handle", frags[0].Href, "input %q", in)
		assert.Equal(t, in, frags[0].Content)
	}
}

func TestTelegramMeHost(t *testing.T) {
	frags := Split("reach us at telegram.me/optima_ai today")
	require.Len(t, frags, 3)
	assert.Equal(t, "https://telegram.me/optima_ai", frags[1].Href)
	assert.Equal(t, "telegram.me/optima_ai", frags[1].Content)
}

func TestTelegramWinsOverGeneric(t *testing.T) {
	// The generic matcher would also claim the full https://t.me span;
	// the Telegram match must be the only accepted one.
	frags := Split("ping https://t.me/support now")
	require.Len(t, frags, 3)
	assert.Equal(t, KindLink, frags[1].Kind)
	assert.Equal(t, "https://t.me/support", frags[1].Href)
}

func TestTwoLinksInOrder(t *testing.T) {
	frags := Split("first https://one.example then t.me/two_handle end")

	var links []Fragment
	for _, f := range frags {
		if f.Kind == KindLink {
			links = append(links, f)
		}
	}
	require.Len(t, links, 2)
	assert.Equal(t, "https://one.example", links[0].Href)
	assert.Equal(t, "https://t.me/two_handle", links[1].Href)
	assert.Equal(t, "first https://one.example then t.me/two_handle end", rejoin(frags))
}

func TestSplitUnicodeText(t *testing.T) {
	frags := Split("Посетите https://example.com")
	require.Len(t, frags, 2)
	assert.Equal(t, "Посетите ", frags[0].Content)
	assert.Equal(t, "https://example.com", frags[1].Href)
	assert.Equal(t, "Посетите https://example.com", rejoin(frags))
}

func TestLabel(t *testing.T) {
	f := Fragment{Kind: KindLink, Content: "t.me/handle", Href: "https://t.me/handle"}
	assert.Equal(t, "Open link t.me/handle in a new tab", Label(f))
}

func TestRenderHTMLEscapesText(t *testing.T) {
	out := RenderHTML(Split(`<script>alert(1)</script> see https://example.com`))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `rel="noopener noreferrer"`)
	assert.Contains(t, out, `target="_blank"`)
}

func TestNormalizeTelegram(t *testing.T) {
	assert.Equal(t, "https://t.me/x", NormalizeTelegram("@t.me/x"))
	assert.Equal(t, "https://t.me/x", NormalizeTelegram("t.me/x"))
	assert.Equal(t, "http://t.me/x", NormalizeTelegram("http://t.me/x"))
	assert.Equal(t, "https://www.t.me/x", NormalizeTelegram("www.t.me/x"))
}
