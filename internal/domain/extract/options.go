package extract

import "time"

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the time source used for extracted_date and staleness.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSourceWebsite stamps records with a fixed source website instead of
// the page host.
func WithSourceWebsite(site string) Option {
	return func(e *Extractor) {
		e.sourceWebsite = site
	}
}

// WithCountries replaces the known-country vocabulary.
func WithCountries(countries []string) Option {
	return func(e *Extractor) {
		if len(countries) > 0 {
			e.countries = countries
		}
	}
}
