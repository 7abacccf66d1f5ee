package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp" // Register WEBP decoder
)

// receiptScanPrompt is the shared prompt used by all LLM providers. The model
// is asked for a schema-conformant JSON object; Normalize handles the cases
// where it answers conversationally instead.
const receiptScanPrompt = `You are a tax receipt analyzer. Carefully read all text in the receipt image and extract the following information:

1. **Amount**: the final total, grand total, or amount due, usually at the bottom of the receipt. Extract only the numeric value (e.g. 42.75 for $42.75).

2. **Category**: a short tax category for the expense, e.g. "Business Meals", "Office Supplies", "Travel", "Equipment", "Utilities", "Software".

3. **Merchant**: the store or business name, usually the largest text at the top of the receipt.

4. **Date**: the transaction or invoice date, in YYYY-MM-DD format.

5. **Description**: a brief description of what was purchased.

6. **Audit reasoning**: an explanation of why this expense fits the selected category, written for tax compliance purposes.

Return ONLY valid JSON in this exact format:
{
  "amount": 0.00,
  "category": "...",
  "merchant": "...",
  "date": "YYYY-MM-DD",
  "description": "...",
  "audit_reasoning": "..."
}

Important:
- The amount must be a number (not a string), representing dollars and cents
- If you cannot find an optional field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// MediaTypeForPath infers a media type from a file extension, defaulting to
// JPEG when the extension is unrecognized.
func MediaTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "image/jpeg"
	}
}

// pdfToImage converts a PDF to a PNG image
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Render the first page (most receipts are single page)
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// imageToPNG converts any image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not supported by Go's standard image
	// package, so it gets its own decoder.
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WEBP, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format by looking for
// an ftyp box with a HEIC-related brand.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// convertToPNG converts PDFs and non-PNG images to PNG format.
// Returns the PNG data and a boolean indicating if conversion occurred.
func convertToPNG(imageData []byte, mimeType string) ([]byte, bool, error) {
	if mimeType == "application/pdf" {
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	} else if mimeType != "image/png" || isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
	// Already PNG, return as-is
	return imageData, false, nil
}

// prepareImageData normalizes the MIME type and converts the image to PNG if
// needed. Returns the final image data, the MIME type to use, and whether
// conversion occurred.
func prepareImageData(imageData []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default
	}

	finalImageData, converted, err := convertToPNG(imageData, mimeType)
	if err != nil {
		return nil, "", false, err
	}

	// Everything is PNG from here on
	return finalImageData, "image/png", converted, nil
}
