package discovery

import (
	"regexp"
	"strings"
)

// Origin records how a candidate source was discovered.
type Origin string

const (
	OriginDeclared Origin = "declared"
	OriginSearched Origin = "searched"
	OriginFallback Origin = "fallback"
	// OriginLocal marks a source read from disk rather than the network.
	OriginLocal Origin = "local"
)

// Reference is a candidate source URL.
type Reference struct {
	URL    string `json:"url" yaml:"url"`
	Origin Origin `json:"origin" yaml:"origin"`
}

// urlPattern is anchored at both ends: a line is a reference only if the
// whole trimmed line is a URL.
var urlPattern = regexp.MustCompile(
	`^(https?://)` +
		`(www\.)?` +
		`[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b` +
		`([-a-zA-Z0-9()@:%_+.~#?&/=]*)$`,
)

// IsValidURL reports whether s is an http(s) URL with a dotted host, a
// 1-6 character top-level label and only URL-safe path/query characters.
func IsValidURL(s string) bool {
	return urlPattern.MatchString(s)
}

// ExtractReferences returns every line of text that is a URL on its own,
// trimmed, in document order. Duplicates are kept.
func ExtractReferences(text string) []Reference {
	var refs []Reference

	for _, line := range strings.Split(text, "\n") {
		candidate := strings.TrimSpace(line)
		if IsValidURL(candidate) {
			refs = append(refs, Reference{URL: candidate, Origin: OriginDeclared})
		}
	}

	return refs
}

// URLs returns the URL of each reference, preserving order.
func URLs(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.URL
	}

	return out
}
