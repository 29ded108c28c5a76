package kdbx

import (
	"encoding/binary"
	"fmt"
)

// KDBX file signature constants. The first word identifies the KeePass
// family; the second distinguishes format generations.
const (
	magicSignature = 0x9AA2D903

	sigKeePass1   = 0xB54BFB65
	sigPrerelease = 0xB54BFB66
	sigKeePass2   = 0xB54BFB67
)

// headerLen covers both signatures plus the minor/major version words.
const headerLen = 12

// fileHeader is the result of parsing the first bytes of a vault file,
// available without credentials.
type fileHeader struct {
	valid  bool
	second uint32
	minor  uint16
	major  uint16
}

// parseFileHeader reads the raw signature. It never fails: too-short or
// mismatched data simply yields an invalid header.
func parseFileHeader(data []byte) fileHeader {
	if len(data) < headerLen {
		return fileHeader{}
	}
	if binary.LittleEndian.Uint32(data[0:4]) != magicSignature {
		return fileHeader{}
	}
	second := binary.LittleEndian.Uint32(data[4:8])
	switch second {
	case sigKeePass1, sigPrerelease, sigKeePass2:
	default:
		return fileHeader{}
	}
	return fileHeader{
		valid:  true,
		second: second,
		minor:  binary.LittleEndian.Uint16(data[8:10]),
		major:  binary.LittleEndian.Uint16(data[10:12]),
	}
}

// version renders the container version, e.g. "4.0".
func (h fileHeader) version() string {
	if !h.valid {
		return ""
	}
	return fmt.Sprintf("%d.%d", h.major, h.minor)
}

// supported reports whether this codec can decrypt the container: modern
// KDBX only, versions 3.x and 4.x.
func (h fileHeader) supported() bool {
	return h.valid && h.second == sigKeePass2 && (h.major == 3 || h.major == 4)
}
