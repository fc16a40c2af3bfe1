package crawl

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Selectors tried in order; the first non-empty match wins.
var (
	headingSelectors = []string{"h1.entry-title", "h1.post-title", "article h1", ".entry-header h1", "h1"}
	contentSelectors = []string{"div.entry-content", "div.post-content", "article", "main", "body"}
)

const sectionHeadings = "h2, h3, h4"

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "table": true, "section": true,
	"article": true, "blockquote": true, "header": true, "footer": true,
}

// PageFromDocument turns a parsed HTML document into the page the ingestion
// pipeline consumes. base resolves relative links.
func PageFromDocument(doc *goquery.Selection, base *url.URL, status int, fetchedAt time.Time) model.Page {
	doc.Find("script, style, noscript, iframe").Remove()

	p := model.Page{
		Status:    status,
		Title:     squash(doc.Find("title").First().Text()),
		FetchedAt: fetchedAt,
	}
	if base != nil {
		p.FinalURL = base.String()
	}

	for _, sel := range headingSelectors {
		if h := squash(doc.Find(sel).First().Text()); h != "" {
			p.Heading = h
			break
		}
	}

	content := doc.Find("body")
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			content = s
			break
		}
	}
	p.Content = textOf(content)

	content.Find(sectionHeadings).Each(func(_ int, h *goquery.Selection) {
		heading := squash(h.Text())
		body := textOf(h.NextUntil("h1, " + sectionHeadings))
		if heading != "" && body != "" {
			p.Sections = append(p.Sections, model.Section{Heading: heading, Text: body})
		}
	})

	p.Links = linksOf(doc, base)
	return p
}

func linksOf(doc *goquery.Selection, base *url.URL) []model.Link {
	var links []model.Link
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := resolve(base, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, model.Link{Text: squash(a.Text()), Href: abs})
	})
	return links
}

// resolve returns the absolute http(s) form of href without its fragment,
// or "" when href is not a followable link.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

// textOf renders the selection as plain text, breaking lines at block
// elements so that labels like "Benefits:" stay separated from the
// preceding paragraph.
func textOf(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if blockElements[n.Data] {
				b.WriteByte('\n')
				defer b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = squash(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
