package attach

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

// pngHeader is the magic prefix http.DetectContentType recognizes as
// image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("cannot write fixture: %v", err)
	}
	return path
}

func TestDataURI(t *testing.T) {
	path := writeFile(t, "shot.png", append(pngHeader, make([]byte, 64)...))

	uri, err := DataURI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("expected a png data URI, got %q", uri[:32])
	}
}

func TestDataURIRejectsNonImages(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("just text, no pixels"))

	if _, err := DataURI(path); err == nil {
		t.Errorf("expected a non-image file to be rejected")
	}
}

func TestDataURIEnforcesEncodedCap(t *testing.T) {
	// Large enough that the base64 form exceeds the 5 MB encoded cap.
	payload := append(pngHeader, make([]byte, issue.MaxScreenshotBytes)...)
	path := writeFile(t, "huge.png", payload)

	_, err := DataURI(path)
	if err == nil {
		t.Fatalf("expected the oversized screenshot to be rejected")
	}
	if !strings.Contains(err.Error(), "5 MB") {
		t.Errorf("expected the error to name the limit, got %v", err)
	}
}

func TestDataURIMissingFile(t *testing.T) {
	if _, err := DataURI(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
