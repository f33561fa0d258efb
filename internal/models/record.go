// ABOUTME: Raw bibliographic record as delivered by the remote reference-management API
// ABOUTME: Mirrors the JSON item shape (key, data, links) and is never mutated after decoding

package models

// Creator is one entry of a record's creators list.
// Either LastName/FirstName or the single-field Name is set.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Tag is a free-form label attached to a record.
type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// RecordData holds the bibliographic metadata of a record.
type RecordData struct {
	ItemType            string    `json:"itemType,omitempty"`
	Title               string    `json:"title"`
	Creators            []Creator `json:"creators"`
	Date                string    `json:"date"`
	DOI                 string    `json:"DOI"`
	URL                 string    `json:"url"`
	JournalAbbreviation string    `json:"journalAbbreviation"`
	PublicationTitle    string    `json:"publicationTitle"`
	Volume              string    `json:"volume"`
	Tags                []Tag     `json:"tags"`
}

// Link is a typed hyperlink attached to a record by the remote service.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// RecordLinks groups the service-provided links of a record.
type RecordLinks struct {
	Self      *Link `json:"self,omitempty"`
	Alternate *Link `json:"alternate,omitempty"`
}

// RawRecord is one bibliographic entry from a collection page.
// Data is nil when the payload omitted the metadata object.
type RawRecord struct {
	Key   string      `json:"key"`
	Data  *RecordData `json:"data"`
	Links RecordLinks `json:"links"`
}

// AlternateHref returns the record's public web page, or "".
func (r RawRecord) AlternateHref() string {
	if r.Links.Alternate == nil {
		return ""
	}
	return r.Links.Alternate.Href
}
