// Package attach converts a screenshot file into the data URI the backend
// stores inline with the record.
package attach

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

// DataURI reads an image file and encodes it as a data URI. The encoded
// payload is capped before any network call ever sees it: oversized
// screenshots are a validation failure, not a backend error.
func DataURI(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read screenshot: %w", err)
	}

	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (detected %s)", path, mime)
	}

	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw)
	if len(uri) > issue.MaxScreenshotBytes {
		return "", fmt.Errorf("screenshot is %.2f MB encoded, the limit is 5 MB", float64(len(uri))/(1024*1024))
	}
	return uri, nil
}
