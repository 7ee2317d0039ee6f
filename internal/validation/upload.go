package validation

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

// MaxUploadSize bounds the whole-file-in-memory encryption model. Larger
// files would need a streaming AEAD pipeline.
const MaxUploadSize = 50 << 20 // 50MB

// ValidateUpload checks a protected-file upload. Any content type is
// allowed (the bytes are opaque ciphertext from the moment they land), but
// the file must be non-empty, within the size bound, and carry a filename.
func ValidateUpload(header *multipart.FileHeader) error {
	if header.Size == 0 {
		return fmt.Errorf("file is empty")
	}

	if header.Size > MaxUploadSize {
		return fmt.Errorf("file too large: maximum size is %d MB", MaxUploadSize/(1<<20))
	}

	if strings.TrimSpace(header.Filename) == "" {
		return fmt.Errorf("filename is required")
	}

	return nil
}

// DetectContentType sniffs the MIME type from the plaintext bytes instead
// of trusting the client header.
func DetectContentType(data []byte, declared string) string {
	n := len(data)
	if n > 512 {
		n = 512
	}
	detected := http.DetectContentType(data[:n])

	// The sniffer falls back to octet-stream for anything it cannot
	// recognize; prefer the declared type in that case.
	if detected == "application/octet-stream" && declared != "" {
		return declared
	}
	return detected
}
