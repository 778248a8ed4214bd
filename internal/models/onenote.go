package models

// Notebook represents a OneNote notebook returned by the Graph API
type Notebook struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Section represents a section within a notebook
type Section struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Page represents a page within a section. Listings request only id and
// title to keep Graph payloads small; content is fetched separately.
type Page struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	LastModifiedDateTime string `json:"lastModifiedDateTime,omitempty"`
}

// ResourceRef is an embedded image, ink rendering or attachment discovered
// in a page's HTML. URL is the remote fetch location; AttachmentName is set
// when the tag carries a data-attachment original filename.
type ResourceRef struct {
	URL            string
	AttachmentName string
	TypeHint       string // MIME type from the tag's type attribute, if any
	Index          int    // position among the page's resources, document order
}
