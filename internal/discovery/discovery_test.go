package discovery

import (
	"testing"

	"github.com/btraven00/plagcheck/pkg/rules"
)

func TestIsValidURL(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{"https://example.com/path?q=1", true},
		{"http://www.example.org", true},
		{"https://scholar.google.com/citations?user=abc", true},
		{"https://doi.org/10.1234/abc.def", true},
		{"example.com", false},
		{"https://example.com extra text", false},
		{"ftp://example.com/file", false},
		{"https://localhost", false},
		{"see https://example.com", false},
		{"https://example.toolongtld", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := IsValidURL(tc.input); got != tc.expected {
				t.Errorf("IsValidURL(%q) = %v, expected %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestExtractReferences(t *testing.T) {
	text := "Introduction\n" +
		"  https://example.com/a  \n" +
		"Cited at https://example.com/b inline\n" +
		"https://example.com/a\n" +
		"http://www.journal.org/article?id=7\n"

	refs := ExtractReferences(text)

	expected := []string{
		"https://example.com/a",
		"https://example.com/a",
		"http://www.journal.org/article?id=7",
	}

	if len(refs) != len(expected) {
		t.Fatalf("expected %d references, got %d: %v", len(expected), len(refs), refs)
	}

	for i, ref := range refs {
		if ref.URL != expected[i] {
			t.Errorf("refs[%d] = %q, expected %q", i, ref.URL, expected[i])
		}

		if ref.Origin != OriginDeclared {
			t.Errorf("refs[%d] origin = %q, expected declared", i, ref.Origin)
		}
	}
}

func TestExtractReferencesSingleLineDocument(t *testing.T) {
	refs := ExtractReferences("https://scholar.google.com/citations?user=abc\n")
	if len(refs) != 1 {
		t.Fatalf("expected exactly one reference, got %d", len(refs))
	}

	if refs[0].URL != "https://scholar.google.com/citations?user=abc" {
		t.Errorf("unexpected reference %q", refs[0].URL)
	}
}

func TestExtractReferencesNone(t *testing.T) {
	if refs := ExtractReferences("no links here\nat all\n"); len(refs) != 0 {
		t.Errorf("expected no references, got %v", refs)
	}
}

func TestBuildQuery(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "metadata lines dropped",
			text:     "ISSN 1234-5678\nVolume 3\nThe quick brown fox jumps.",
			expected: "The quick brown fox jumps.",
		},
		{
			name:     "first three survivors",
			text:     "Title of paper\nDOI 10.1/x\nAuthor Name\nAbstract begins\nSecond paragraph\n",
			expected: "Title of paper Author Name Abstract begins",
		},
		{
			name:     "case insensitive keywords",
			text:     "JURNAL NOMOR 4\nHTTP://EXAMPLE.COM\nBody text\n",
			expected: "Body text",
		},
		{
			name:     "page separators do not consume slots",
			text:     "\n\nFirst\n\nSecond\n",
			expected: "First Second",
		},
		{
			name:     "everything filtered",
			text:     "ISSN\nvolume\n",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildQuery(tc.text); got != tc.expected {
				t.Errorf("BuildQuery() = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestQueryBuilderCustomRules(t *testing.T) {
	builder := NewQueryBuilder(rules.QueryNoise("draft"), 1)

	got := builder.Build("DRAFT version\nISSN 1234\nSecond line\n")
	if got != "ISSN 1234" {
		t.Errorf("Build() = %q, expected %q", got, "ISSN 1234")
	}
}
