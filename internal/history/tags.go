package history

import (
	"regexp"
	"strings"
)

var hashtagRe = regexp.MustCompile(`#([\pL\pN_]{1,32})`)

const maxTags = 20

// ExtractTags returns the distinct lower-cased hashtags in notes, in order of
// first appearance.
func ExtractTags(notes string) []string {
	matches := hashtagRe.FindAllStringSubmatch(notes, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		t := strings.ToLower(m[1])
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) >= maxTags {
			break
		}
	}
	return out
}
