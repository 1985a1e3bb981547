package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"notevault/internal/domain"
	"notevault/internal/domain/services"
)

// GzipCodec implements services.ContentCodec with gzip + base64.
// The size limit applies to decoded bytes, never to the wire length.
type GzipCodec struct {
	threshold int
	maxBytes  int
	level     int
	logger    *slog.Logger
}

// NewGzipCodec creates a codec compressing content strictly larger than
// threshold bytes and rejecting decoded content over maxBytes.
func NewGzipCodec(threshold, maxBytes int, logger *slog.Logger) *GzipCodec {
	return &GzipCodec{
		threshold: threshold,
		maxBytes:  maxBytes,
		level:     gzip.DefaultCompression,
		logger:    logger,
	}
}

// Decode returns the plain content of a wire payload
func (c *GzipCodec) Decode(payload services.WirePayload) (string, error) {
	if !payload.Compressed {
		if len(payload.Content) > c.maxBytes {
			return "", c.tooLarge()
		}
		return payload.Content, nil
	}

	raw, err := base64.StdEncoding.DecodeString(payload.Content)
	if err != nil {
		return "", invalidContent("compressed content is not valid base64")
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", invalidContent("compressed content is not valid gzip")
	}
	defer zr.Close()

	// Read one byte past the limit to detect overflow without inflating
	// the whole stream
	data, err := io.ReadAll(io.LimitReader(zr, int64(c.maxBytes)+1))
	if err != nil {
		return "", invalidContent("compressed content is not valid gzip")
	}
	if len(data) > c.maxBytes {
		return "", c.tooLarge()
	}
	if !utf8.Valid(data) {
		return "", invalidContent("decompressed content is not valid UTF-8")
	}

	return string(data), nil
}

// Encode prepares content for transmission. Compression failures fall back
// to the raw content.
func (c *GzipCodec) Encode(content string) services.WirePayload {
	if len(content) <= c.threshold {
		return services.WirePayload{Content: content}
	}

	compressed, err := c.compress(content)
	if err != nil {
		c.logger.Warn("content compression failed, sending uncompressed",
			"size", len(content),
			"error", err,
		)
		return services.WirePayload{Content: content}
	}

	return services.WirePayload{
		Content:    base64.StdEncoding.EncodeToString(compressed),
		Compressed: true,
	}
}

func (c *GzipCodec) compress(content string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := io.WriteString(zw, content); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compress content: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("flush gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GzipCodec) tooLarge() error {
	return &domain.PayloadTooLargeError{
		Message: fmt.Sprintf("content exceeds %d bytes", c.maxBytes),
		Limit:   c.maxBytes,
	}
}

func invalidContent(msg string) error {
	return &domain.ValidationError{
		Message: msg,
		Fields:  map[string]string{"content": msg},
	}
}
