// Package attachment encodes and decodes the inline attachment strings stored
// on messages: a data-URI, the original filename and the MIME type joined by
// "|". A legacy form (a bare data-URI with no delimiter) is still accepted.
package attachment

import "strings"

const delimiter = "|"

// Attachment is the decoded form of one stored attachment string
type Attachment struct {
	DataURI  string `json:"data_uri"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
}

// IsImage reports whether the attachment should be rendered as an image
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

// Encode packs a data-URI plus metadata into the stored string form
func Encode(dataURI, filename, mimeType string) string {
	return dataURI + delimiter + filename + delimiter + mimeType
}

// Parse decodes a stored attachment string. Legacy bare data-URIs decode with
// filename "Attachment" and type "unknown" ("image/png" when the URI prefix
// marks an image).
func Parse(s string) Attachment {
	a := Attachment{
		DataURI:  s,
		Filename: "Attachment",
		MIMEType: "unknown",
	}

	if strings.Contains(s, delimiter) {
		parts := strings.SplitN(s, delimiter, 3)
		if len(parts) >= 3 {
			a.DataURI = parts[0]
			a.Filename = parts[1]
			a.MIMEType = parts[2]
		}
		return a
	}

	if strings.HasPrefix(s, "data:image") {
		a.MIMEType = "image/png"
	}
	return a
}
