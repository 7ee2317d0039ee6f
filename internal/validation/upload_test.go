package validation

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload(&multipart.FileHeader{Filename: "doc.pdf", Size: 1024}))

	err := ValidateUpload(&multipart.FileHeader{Filename: "doc.pdf", Size: 0})
	assert.ErrorContains(t, err, "empty")

	err = ValidateUpload(&multipart.FileHeader{Filename: "doc.pdf", Size: MaxUploadSize + 1})
	assert.ErrorContains(t, err, "too large")

	err = ValidateUpload(&multipart.FileHeader{Filename: "   ", Size: 1024})
	assert.ErrorContains(t, err, "filename")
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectContentType([]byte("%PDF-1.7 rest of file"), "application/octet-stream"))

	// Unrecognizable bytes fall back to the declared type.
	assert.Equal(t, "application/x-sealdrop", DetectContentType([]byte{0x00, 0x01, 0x02}, "application/x-sealdrop"))

	// With nothing declared, the sniffer's answer stands.
	assert.Equal(t, "application/octet-stream", DetectContentType([]byte{0x00, 0x01, 0x02}, ""))
}
