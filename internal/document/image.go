package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

var (
	// ErrRemoteImage is returned for http(s) image references; only inline
	// data is embedded.
	ErrRemoteImage = errors.New("remote images are not embedded")
	// ErrUnsupportedImage is returned for formats the PDF writer cannot embed.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Image is decoded picture data ready for embedding.
type Image struct {
	Name   string
	Type   string
	Data   []byte
	Width  int
	Height int
}

var fpdfTypes = map[string]string{
	"png":  "PNG",
	"jpeg": "JPG",
	"gif":  "GIF",
}

// DecodeImage accepts a data URL or bare base64 payload and returns the
// embedded picture.
func DecodeImage(src string) (*Image, error) {
	src = strings.TrimSpace(src)
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil, ErrRemoteImage
	}
	payload := src
	if strings.HasPrefix(lower, "data:") {
		header, body, ok := strings.Cut(src[len("data:"):], ",")
		if !ok {
			return nil, errors.New("malformed data url")
		}
		if !strings.HasSuffix(strings.ToLower(header), ";base64") {
			return nil, errors.New("data url is not base64 encoded")
		}
		payload = body
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	kind, ok := fpdfTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return &Image{
		Name:   "scan-image",
		Type:   kind,
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
