package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const PDFMimeType = "application/pdf"

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// DetectMIME returns the declared type unless it is missing or generic, in
// which case data is sniffed.
func DetectMIME(declared string, data []byte) string {
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		if i := strings.IndexByte(declared, ';'); i >= 0 {
			declared = declared[:i]
		}
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return DetectMIME(http.DetectContentType(data), nil)
}

// ValidatePDF checks the MIME type and size of an uploaded document.
func ValidatePDF(declared string, data []byte, maxSize int64) error {
	if mime := DetectMIME(declared, data); mime != PDFMimeType {
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, mime)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), maxSize)
	}
	return nil
}

// ReadFileLimited reads at most maxSize bytes from path and fails with
// ErrFileTooLarge if the file is bigger.
func ReadFileLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ReadLimited(f, maxSize)
}

// ReadLimited reads r fully unless it holds more than maxSize bytes.
func ReadLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize)
	}
	return data, nil
}

// SaveWithTimestamp writes data into dir as name_<unix>.ext, replacing
// characters that are unsafe in file names, and returns the path written.
func SaveWithTimestamp(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	fileName := SanitizeFileName(fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext))
	path := filepath.Join(dir, fileName)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)
}
