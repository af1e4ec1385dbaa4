package synth

import (
	"regexp"
	"strings"
)

var (
	fencedReply = regexp.MustCompile("(?s)### Response:\\s*```ruby(.*?)```")
	plainReply  = regexp.MustCompile(`(?s)### Response:\s*(.*?)(?:<\|end_of_text\|>|###|$)`)
	subjectRef  = regexp.MustCompile(`\bdescribed_class\b`)
)

// ParseReply extracts the spec text from a templated reply. A ```ruby fence
// after the response marker is preferred; otherwise the text after the
// marker up to an end-of-sequence token, the next ### section, or the end of
// the reply is used. ok is false when neither yields any text.
func ParseReply(reply string) (string, bool) {
	var text string
	if m := fencedReply.FindStringSubmatch(reply); m != nil {
		text = strings.TrimSpace(m[1])
	} else if m := plainReply.FindStringSubmatch(reply); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return "", false
	}
	return NormalizeSubject(text), true
}

// NormalizeSubject rewrites bare described_class references to
// described_class.new so the generated examples exercise an instance.
// References already followed by .new are left alone, so the rewrite can be
// applied repeatedly.
func NormalizeSubject(text string) string {
	locs := subjectRef.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 4*len(locs))
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[1]])
		if !followedByNew(text[loc[1]:]) {
			b.WriteString(".new")
		}
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// followedByNew reports whether rest starts with a .new call, not a longer
// method name such as .new_from_params.
func followedByNew(rest string) bool {
	if !strings.HasPrefix(rest, ".new") {
		return false
	}
	if len(rest) == len(".new") {
		return true
	}
	c := rest[len(".new")]
	return !(c == '_' || c == '?' || c == '!' ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9')
}
