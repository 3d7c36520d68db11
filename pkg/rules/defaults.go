package rules

// Default keyword lists. Matching is case-insensitive substring matching.
var (
	// QueryNoiseKeywords mark header/footer lines of journal papers.
	QueryNoiseKeywords = []string{"issn", "volume", "nomor", "doi", "https", "http"}

	// PageChromeKeywords mark navigation and account UI on scraped pages.
	PageChromeKeywords = []string{"font size", "help", "login", "register"}
)

// QueryNoise returns the rule set applied to document lines before they are
// used as a search query: blank lines, bibliographic metadata and bare links.
func QueryNoise(keywords ...string) *Set {
	if len(keywords) == 0 {
		keywords = QueryNoiseKeywords
	}

	return NewSet("query-noise", Blank()).With(Keywords("bibliographic metadata or link", keywords...)...)
}

// PageChrome returns the rule set applied to text scraped from web pages.
func PageChrome(keywords ...string) *Set {
	if len(keywords) == 0 {
		keywords = PageChromeKeywords
	}

	return NewSet("page-chrome", Blank()).With(Keywords("navigation chrome", keywords...)...)
}
