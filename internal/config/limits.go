package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFolderNameLength = 255

	// MaxNoteTitleLength is the maximum length for note titles.
	MaxNoteTitleLength = 255

	// MaxTags is the maximum number of tags on a note.
	MaxTags = 20

	// MaxTagLength is the maximum length of a single tag.
	MaxTagLength = 50

	// MaxContentBytes is the hard limit on decoded note content (2 MiB).
	MaxContentBytes = 2 << 20

	// CompressionThreshold is the content size above which note content is
	// gzip-compressed on the wire (10 KiB). Content of exactly this size is
	// sent as-is.
	CompressionThreshold = 10 << 10

	// MaxFolderDepth bounds ancestor walks. A walk longer than this means the
	// stored tree is corrupt.
	MaxFolderDepth = 1024

	// MaxRequestBodyBytes limits JSON request bodies.
	MaxRequestBodyBytes = 10 << 20
)
