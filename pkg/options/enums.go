package options

import "fmt"

// Compression selects the block compression algorithm.
type Compression string

const (
	CompressionNone     Compression = "kNoCompression"
	CompressionSnappy   Compression = "kSnappyCompression"
	CompressionZlib     Compression = "kZlibCompression"
	CompressionLZ4      Compression = "kLZ4Compression"
	CompressionZSTD     Compression = "kZSTD"
	CompressionDisabled Compression = "kDisableCompressionOption"
)

var compressions = map[string]Compression{
	"kNoCompression":            CompressionNone,
	"kSnappyCompression":        CompressionSnappy,
	"kZlibCompression":          CompressionZlib,
	"kLZ4Compression":           CompressionLZ4,
	"kZSTD":                     CompressionZSTD,
	"kZSTDNotFinalCompression":  CompressionZSTD,
	"kDisableCompressionOption": CompressionDisabled,
}

// UnmarshalText accepts the persisted spelling of a compression type.
func (c *Compression) UnmarshalText(text []byte) error {
	v, ok := compressions[string(text)]
	if !ok {
		return fmt.Errorf("unknown compression type %q", text)
	}
	*c = v
	return nil
}

// MarshalText returns the persisted spelling.
func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

// CompactionStyle selects the compaction strategy.
type CompactionStyle string

const (
	CompactionStyleLevel     CompactionStyle = "kCompactionStyleLevel"
	CompactionStyleUniversal CompactionStyle = "kCompactionStyleUniversal"
	CompactionStyleFIFO      CompactionStyle = "kCompactionStyleFIFO"
	CompactionStyleNone      CompactionStyle = "kCompactionStyleNone"
)

// UnmarshalText accepts the persisted spelling of a compaction style.
func (s *CompactionStyle) UnmarshalText(text []byte) error {
	switch v := CompactionStyle(text); v {
	case CompactionStyleLevel, CompactionStyleUniversal, CompactionStyleFIFO, CompactionStyleNone:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown compaction style %q", text)
	}
}

// MarshalText returns the persisted spelling.
func (s CompactionStyle) MarshalText() ([]byte, error) {
	return []byte(s), nil
}
