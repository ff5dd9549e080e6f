package transform

import "strings"

// Rule describes the image URL rewrite applied during a migration run.
// Both substitutions are literal substring replacements, matching anywhere
// in the URL string; no URL parsing is involved.
type Rule struct {
	// HostMarker gates the rule: URLs that do not contain it pass through
	// untouched.
	HostMarker string
	// OldPrefix is the hosting path segment to replace with NewPrefix.
	OldPrefix string
	NewPrefix string
	// OldExt is the file extension to replace with NewExt. The match is
	// case-insensitive on OldExt.
	OldExt string
	NewExt string
}

// DefaultRule returns the rewrite rule for the current image host migration
func DefaultRule() Rule {
	return Rule{
		HostMarker: "static.recar.lt",
		OldPrefix:  "/images/",
		NewPrefix:  "/pictures/",
		OldExt:     ".jpg",
		NewExt:     ".webp",
	}
}

// Apply rewrites a single URL under the rule. URLs that are empty or do not
// belong to the recognized host are returned unchanged, which makes Apply
// idempotent: the replacement output never contains the replaced substrings,
// so a second application is a no-op.
func (r Rule) Apply(url string) string {
	if url == "" || (r.HostMarker != "" && !strings.Contains(url, r.HostMarker)) {
		return url
	}

	out := url
	if r.OldPrefix != "" {
		out = strings.ReplaceAll(out, r.OldPrefix, r.NewPrefix)
	}
	if r.OldExt != "" {
		out = replaceAllFold(out, r.OldExt, r.NewExt)
	}
	return out
}

// ApplyAll rewrites every URL in the slice pointwise, preserving order and
// count. The input slice is not modified.
func (r Rule) ApplyAll(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = r.Apply(u)
	}
	return out
}

// Changed reports whether any element differs between the two slices.
// Slices of different lengths are always considered changed.
func Changed(before, after []string) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

// replaceAllFold replaces every occurrence of old with new, matching old
// case-insensitively
func replaceAllFold(s, old, new string) string {
	if old == "" {
		return s
	}

	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)

	var b strings.Builder
	start := 0
	for {
		idx := strings.Index(lower[start:], oldLower)
		if idx < 0 {
			break
		}
		idx += start
		b.WriteString(s[start:idx])
		b.WriteString(new)
		start = idx + len(old)
	}
	if start == 0 {
		return s
	}
	b.WriteString(s[start:])
	return b.String()
}
