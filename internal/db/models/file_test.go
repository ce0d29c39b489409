package models

import "testing"

func TestFileTypeAndIsImage(t *testing.T) {
	tests := []struct {
		filename string
		wantType string
		isImage  bool
	}{
		{"photo.jpg", "image", true},
		{"PHOTO.PNG", "image", true},
		{"animation.webp", "image", true},
		// svg is categorized as an image but cannot be thumbnailed
		{"diagram.svg", "image", false},
		{"manual.pdf", "pdf", false},
		{"notes.md", "text", false},
		{"backup.tar", "archive", false},
		{"unknown.xyz", "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			f := File{OriginalFilename: tt.filename}

			if got := f.Type(); got != tt.wantType {
				t.Errorf("Type() = %q, want %q", got, tt.wantType)
			}

			if got := f.IsImage(); got != tt.isImage {
				t.Errorf("IsImage() = %v, want %v", got, tt.isImage)
			}
		})
	}
}
