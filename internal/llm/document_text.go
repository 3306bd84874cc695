package llm

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DocumentText returns the readable text of a document payload.
// PDFs are parsed; text-like payloads are returned as is.
func DocumentText(mimeType string, data []byte) (string, error) {
	switch {
	case mimeType == "application/pdf":
		return pdfText(data)
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json", mimeType == "application/xml":
		return string(data), nil
	case utf8.Valid(data) && mimeType == "":
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported document type %q", mimeType)
	}
}

func pdfText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
