package domain

import "time"

// UnknownCountry is shown in place of an absent country. It is never stored on a SiteRecord.
const UnknownCountry = "Unknown"

// RawSite is a site entry as it appears in a source document.
type RawSite struct {
	Created     string   `json:"Created"`
	Country     string   `json:"Country,omitempty"`
	Identifiers []string `json:"Identifiers,omitempty"`
}

// SourceDocument is one source's list of sites, tagged with the source name (for files, the filename).
type SourceDocument struct {
	Source string    `json:"-"`
	Sites  []RawSite `json:"Sites"`
}

// SiteRecord is a normalized site. An empty Country means the source did not report one.
type SiteRecord struct {
	Identifiers []string  `json:"identifiers"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
}

// HasCountry reports whether the record carries a country.
func (r SiteRecord) HasCountry() bool {
	return r.Country != ""
}

// DisplayCountry returns the record's country, or UnknownCountry if absent.
func DisplayCountry(country string) string {
	if country == "" {
		return UnknownCountry
	}
	return country
}

// SourceInfo pairs a source tag with its display label.
type SourceInfo struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}
