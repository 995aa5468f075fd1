package attachment

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Attachment
	}{
		{
			name: "full form",
			in:   "data:application/pdf;base64,AAAA|quote.pdf|application/pdf",
			want: Attachment{DataURI: "data:application/pdf;base64,AAAA", Filename: "quote.pdf", MIMEType: "application/pdf"},
		},
		{
			name: "filename containing no extension",
			in:   "data:text/plain;base64,AAAA|notes|text/plain",
			want: Attachment{DataURI: "data:text/plain;base64,AAAA", Filename: "notes", MIMEType: "text/plain"},
		},
		{
			name: "legacy bare image uri",
			in:   "data:image/png;base64,AAAA",
			want: Attachment{DataURI: "data:image/png;base64,AAAA", Filename: "Attachment", MIMEType: "image/png"},
		},
		{
			name: "legacy bare non-image uri",
			in:   "data:application/pdf;base64,AAAA",
			want: Attachment{DataURI: "data:application/pdf;base64,AAAA", Filename: "Attachment", MIMEType: "unknown"},
		},
		{
			name: "delimiter present but metadata missing",
			in:   "data:image/png;base64,AAAA|photo.png",
			want: Attachment{DataURI: "data:image/png;base64,AAAA|photo.png", Filename: "Attachment", MIMEType: "unknown"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.in); got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	encoded := Encode("data:image/jpeg;base64,BBBB", "site-photo.jpg", "image/jpeg")
	got := Parse(encoded)
	want := Attachment{DataURI: "data:image/jpeg;base64,BBBB", Filename: "site-photo.jpg", MIMEType: "image/jpeg"}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
	if !got.IsImage() {
		t.Error("IsImage() = false for image/jpeg")
	}
}

func TestIsImage(t *testing.T) {
	if (Attachment{MIMEType: "application/pdf"}).IsImage() {
		t.Error("IsImage() = true for application/pdf")
	}
	if !(Attachment{MIMEType: "image/png"}).IsImage() {
		t.Error("IsImage() = false for image/png")
	}
}
