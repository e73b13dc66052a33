package museai

import (
	"regexp"
	"strings"
	"unicode"
)

// BrandHashtag is always requested and used in the fallback set.
const BrandHashtag = "#MuseAI"

// MaxHashtags bounds every hashtag result.
const MaxHashtags = 12

var hashtagPattern = regexp.MustCompile(`#[A-Za-z0-9_]+`)

// ExtractHashtags returns the hashtag tokens found in free text, deduplicated
// in order of first appearance and truncated to MaxHashtags.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		tags = append(tags, m)
		if len(tags) == MaxHashtags {
			break
		}
	}
	return tags
}

// FallbackHashtags returns the deterministic tag set built from the museum
// and theme names plus the brand tag.
func FallbackHashtags(museumName, themeName string) []string {
	return []string{
		"#" + stripSpace(museumName),
		"#" + stripSpace(themeName),
		BrandHashtag,
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
