package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// prepareImage normalizes an uploaded capture into the PNG inline payload
// the extraction call expects. PDFs are rendered (first page), HEIC/HEIF
// phone captures are decoded, everything else goes through the standard
// image decoders. Returns the payload, its MIME type, and whether a
// conversion happened.
func prepareImage(imageData []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if mimeType == "application/pdf" {
		pngData, err := pdfToPNG(imageData)
		if err != nil {
			return nil, "", false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, "image/png", true, nil
	}

	if mimeType == "image/png" && !isHEIC(imageData, mimeType) {
		return imageData, "image/png", false, nil
	}

	pngData, err := toPNG(imageData, mimeType)
	if err != nil {
		return nil, "", false, fmt.Errorf("converting image to PNG: %w", err)
	}
	return pngData, "image/png", true, nil
}

// pdfToPNG renders the first page of a PDF. Receipts are single page in
// practice.
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	return encodePNG(img)
}

// toPNG decodes any supported image format and re-encodes it as PNG.
func toPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEIC(imageData, mimeType) {
		// Go's standard image package cannot decode iPhone HEIC captures
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
		}
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC detects HEIC/HEIF content from the ftyp box brand or the MIME
// type, since phones are inconsistent about reporting it.
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heif", "mif1", "msf1":
			return true
		}
	}
	return false
}
