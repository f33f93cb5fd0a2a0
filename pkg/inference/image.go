package inference

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality is the quality used for inline image payloads.
const DefaultJPEGQuality = 85

// EncodeJPEG encodes an image as JPEG bytes.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeImageBase64 encodes an image to base64 JPEG format.
func EncodeImageBase64(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURL wraps base64 JPEG data in a data URL.
func DataURL(b64 string) string {
	return "data:image/jpeg;base64," + b64
}
