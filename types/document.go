package types

// Extraction is the result of reading a PDF's text.
type Extraction struct {
	Text       string `json:"text"`
	Pages      int    `json:"pages"`
	EmptyPages []int  `json:"empty_pages,omitempty"` // 1-based page numbers that contributed no text
}

// Upload is a document handed over by a client, before any validation.
type Upload struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"` // base64 in JSON
}
