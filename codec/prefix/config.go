package prefix

import "fmt"

// Width selects how the payload length is written in front of the payload.
//
// The widths are not interoperable: both ends of a stream must agree on one.
type Width int

const (
	// Fixed32 writes the length as a 4-byte little-endian unsigned integer.
	Fixed32 Width = iota
	// Varint writes the length as an unsigned LEB128 varint, 1 byte for lengths below 128.
	Varint
)

func (w Width) String() string {
	switch w {
	case Fixed32:
		return "fixed32"
	case Varint:
		return "varint"
	default:
		return fmt.Sprintf("Width(%d)", int(w))
	}
}

// ParseWidth is the inverse of [Width.String].
func ParseWidth(s string) (Width, error) {
	switch s {
	case "fixed32", "":
		return Fixed32, nil
	case "varint":
		return Varint, nil
	default:
		return 0, fmt.Errorf("unknown width %q", s)
	}
}

type Config struct {
	width    Width
	maxFrame int
}

type ConfigFunc = func(c *Config)

// Width sets the length field encoding. The default is [Fixed32].
func (c *Config) Width(w Width) {
	if w != Fixed32 && w != Varint {
		panic("unknown width")
	}
	c.width = w
}

// MaxFrame limits the payload length. Zero means no limit besides the one of the width.
func (c *Config) MaxFrame(n int) {
	if n < 0 {
		panic("max frame can't be < 0")
	}
	c.maxFrame = n
}
