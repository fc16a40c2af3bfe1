// Package model contains domain models passed between layers.
package model

import "time"

// Link is an anchor found on a fetched page.
type Link struct {
	Text string
	Href string // absolute
}

// Section is a heading and the text that follows it up to the next heading.
type Section struct {
	Heading string
	Text    string
}

// Page is what the fetcher hands to the ingestion pipeline for one URL.
type Page struct {
	URL       string // requested URL
	FinalURL  string // URL after redirects
	Status    int
	Title     string // <title> text
	Heading   string // first article heading (h1.entry-title and friends)
	Content   string // article plain text
	Sections  []Section
	Links     []Link
	FetchedAt time.Time
}

// SourceURL is the identity of the page: the resolved URL when known.
func (p Page) SourceURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
