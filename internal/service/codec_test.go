package service

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/domain/services"
)

func newTestCodec() *GzipCodec {
	return NewGzipCodec(config.CompressionThreshold, config.MaxContentBytes,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func gzipBase64(t *testing.T, content string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := io.WriteString(zw, content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec()

	tests := []struct {
		name           string
		content        string
		wantCompressed bool
	}{
		{name: "empty", content: "", wantCompressed: false},
		{name: "small", content: "hello", wantCompressed: false},
		{name: "exactly at threshold", content: strings.Repeat("x", config.CompressionThreshold), wantCompressed: false},
		{name: "one byte over threshold", content: strings.Repeat("x", config.CompressionThreshold+1), wantCompressed: true},
		{name: "multibyte over threshold", content: strings.Repeat("héllo wörld ✓ ", 2000), wantCompressed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := codec.Encode(tt.content)
			assert.Equal(t, tt.wantCompressed, payload.Compressed)

			decoded, err := codec.Decode(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.content, decoded)
		})
	}
}

func TestCodecSizeLimitAppliesToDecodedBytes(t *testing.T) {
	codec := newTestCodec()
	oversized := strings.Repeat("a", config.MaxContentBytes+1)

	tests := []struct {
		name    string
		payload services.WirePayload
	}{
		{name: "raw", payload: services.WirePayload{Content: oversized}},
		{name: "compressed", payload: services.WirePayload{Content: gzipBase64(t, oversized), Compressed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.payload)
			require.ErrorIs(t, err, domain.ErrPayloadTooLarge)

			var tooLarge *domain.PayloadTooLargeError
			require.ErrorAs(t, err, &tooLarge)
			assert.Equal(t, config.MaxContentBytes, tooLarge.Limit)
		})
	}

	// The compressed form of the oversized content is tiny on the wire
	assert.Less(t, len(gzipBase64(t, oversized)), config.CompressionThreshold)

	exact := strings.Repeat("a", config.MaxContentBytes)
	decoded, err := codec.Decode(services.WirePayload{Content: gzipBase64(t, exact), Compressed: true})
	require.NoError(t, err)
	assert.Len(t, decoded, config.MaxContentBytes)
}

func TestCodecRejectsMalformedPayloads(t *testing.T) {
	codec := newTestCodec()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not base64", content: "%%%not-base64%%%"},
		{name: "not gzip", content: base64.StdEncoding.EncodeToString([]byte("plain text"))},
		{name: "empty compressed", content: ""},
		{name: "invalid utf8", content: gzipBase64(t, string([]byte{0xff, 0xfe, 0xfd}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(services.WirePayload{Content: tt.content, Compressed: true})
			require.ErrorIs(t, err, domain.ErrValidation)

			var valErr *domain.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, valErr.Fields, "content")
		})
	}
}

func TestCodecFallsBackWhenCompressionFails(t *testing.T) {
	codec := newTestCodec()
	codec.level = 42 // rejected by gzip.NewWriterLevel

	content := strings.Repeat("y", config.CompressionThreshold*2)
	payload := codec.Encode(content)

	assert.False(t, payload.Compressed)
	assert.Equal(t, content, payload.Content)
}
