// Package linkify splits raw message text into renderable fragments, each
// either plain text or a recognized link. Telegram references (t.me /
// telegram.me, with optional @ and scheme) are detected first and win over
// the generic URL matcher when their spans overlap.
package linkify

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

const (
	KindText = "text"
	KindLink = "link"
)

// Fragment is one contiguous piece of rendered message content.
// Concatenating the Content of all fragments reproduces the input exactly.
type Fragment struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Href    string `json:"href,omitempty"`
}

type match struct {
	start int
	end   int
	text  string
	href  string
}

var genericPattern = regexp.MustCompile(`https?://\S+`)

// telegramPattern is compiled leniently: if it ever fails to compile the
// detector degrades to generic URL matching only instead of panicking.
var telegramPattern = compileTelegram()

func compileTelegram() *regexp.Regexp {
	re, err := regexp.Compile(`@?(?:https?://)?(?:www\.)?(?:t\.me|telegram\.me)/[a-zA-Z0-9_]+`)
	if err != nil {
		return nil
	}
	return re
}

// NormalizeTelegram converts a matched Telegram reference to a full https URL:
// a leading @ is stripped and a scheme is prepended when absent.
func NormalizeTelegram(matched string) string {
	s := strings.TrimPrefix(matched, "@")
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "https://" + s
	}
	return s
}

// Split scans input and returns an ordered fragment list covering it exactly.
// Zero matches yields a single text fragment equal to the input.
func Split(input string) []Fragment {
	matches := findMatches(input)
	if len(matches) == 0 {
		return []Fragment{{Kind: KindText, Content: input}}
	}

	frags := make([]Fragment, 0, 2*len(matches)+1)
	pos := 0
	for _, m := range matches {
		if m.start > pos {
			frags = append(frags, Fragment{Kind: KindText, Content: input[pos:m.start]})
		}
		frags = append(frags, Fragment{Kind: KindLink, Content: m.text, Href: m.href})
		pos = m.end
	}
	if pos < len(input) {
		frags = append(frags, Fragment{Kind: KindText, Content: input[pos:]})
	}
	return frags
}

func findMatches(input string) []match {
	var accepted []match

	if telegramPattern != nil {
		for _, loc := range telegramPattern.FindAllStringIndex(input, -1) {
			text := input[loc[0]:loc[1]]
			accepted = append(accepted, match{
				start: loc[0],
				end:   loc[1],
				text:  text,
				href:  NormalizeTelegram(text),
			})
		}
	}

	// Generic matches lose to any overlapping Telegram match: Telegram
	// references are resolved first and are the more specific pattern.
	for _, loc := range genericPattern.FindAllStringIndex(input, -1) {
		if overlapsAny(accepted, loc[0], loc[1]) {
			continue
		}
		text := input[loc[0]:loc[1]]
		accepted = append(accepted, match{
			start: loc[0],
			end:   loc[1],
			text:  text,
			href:  text,
		})
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

func overlapsAny(ms []match, start, end int) bool {
	for _, m := range ms {
		if start < m.end && end > m.start {
			return true
		}
	}
	return false
}

// Label returns the accessible label for a link fragment.
func Label(f Fragment) string {
	return fmt.Sprintf("Open link %s in a new tab", f.Content)
}

// RenderHTML renders fragments to HTML. Text fragments are escaped verbatim
// so untrusted message text can never inject markup; link fragments become
// anchors that open in a new tab.
func RenderHTML(frags []Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		switch f.Kind {
		case KindLink:
			fmt.Fprintf(&b,
				`<a href=%q target="_blank" rel="noopener noreferrer" aria-label=%q>%s</a>`,
				f.Href, Label(f), html.EscapeString(f.Content))
		default:
			b.WriteString(html.EscapeString(f.Content))
		}
	}
	return b.String()
}
