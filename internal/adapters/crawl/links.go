package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// WordPress style post permalinks: /2025/01/10/slug/.
	datedPath = regexp.MustCompile(`/20\d{2}/`)
	// Terms that make a link worth following from a listing page.
	indicatorTerms = regexp.MustCompile(`(?i)scholarship|fellowship|grant|bursar|funded|award`)
	// Listing, archive and account paths are never detail pages.
	nonDetailPath = regexp.MustCompile(`(?i)/(category|tag|author|page|feed|wp-admin|wp-login|comments|search)(/|$)|\?s=`)
)

const paginationSelector = `a[rel="next"], link[rel="next"], a.next, .next a, .nav-previous a, a.next-page`

// isCandidate reports whether link, found on listing, looks like a
// scholarship detail page on the same site.
func isCandidate(listing *url.URL, link, text string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	if listing != nil && !sameSite(listing.Hostname(), u.Hostname()) {
		return false
	}
	if nonDetailPath.MatchString(u.Path + "?" + u.RawQuery) {
		return false
	}
	if strings.Trim(u.Path, "/") == "" {
		return false
	}
	if listing != nil && strings.TrimRight(u.Path, "/") == strings.TrimRight(listing.Path, "/") {
		return false
	}
	return datedPath.MatchString(u.Path) || indicatorTerms.MatchString(u.Path) || indicatorTerms.MatchString(text)
}

func sameSite(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

// nextPages returns the pagination targets of a listing page.
func nextPages(doc *goquery.Selection, base *url.URL) []string {
	var out []string
	seen := map[string]bool{}
	doc.Find(paginationSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := resolve(base, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	})
	return out
}
