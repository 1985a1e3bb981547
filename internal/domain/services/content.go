package services

// WirePayload is note content as it travels over HTTP. When Compressed is
// set, Content is base64 of gzip and must be decoded before use.
type WirePayload struct {
	Content    string `json:"content"`
	Compressed bool   `json:"_compressed,omitempty"`
}

// ContentCodec converts between wire payloads and decoded content
type ContentCodec interface {
	// Decode reverses transport compression and enforces the decoded size limit
	Decode(payload WirePayload) (string, error)

	// Encode compresses content above the threshold; on failure it returns
	// the content uncompressed
	Encode(content string) WirePayload
}

// ContentCipher seals note content for storage. associatedData binds the
// ciphertext to its note so it cannot be replayed onto another record.
type ContentCipher interface {
	Seal(plaintext, associatedData []byte) ([]byte, error)
	Open(ciphertext, associatedData []byte) ([]byte, error)
}
