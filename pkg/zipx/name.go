// Package zipx decodes zip entry names written by tools that predate the
// UTF-8 flag.
package zipx

import (
	"archive/zip"
	"encoding/binary"
	"hash/crc32"

	"golang.org/x/text/encoding/charmap"
)

// unicodePathTag is the Info-ZIP Unicode Path extra field: a version byte,
// the CRC32 of the header name and the UTF-8 name.
const unicodePathTag = 0x7075

// EntryName returns the UTF-8 name of fh. Names without the UTF-8 flag are
// taken from a Unicode Path extra field whose CRC matches, else decoded as
// code page 437. exact is false only for that last guess.
func EntryName(fh *zip.FileHeader) (name string, exact bool) {
	if !fh.NonUTF8 {
		return fh.Name, true
	}
	for extra := fh.Extra; len(extra) >= 4; {
		tag := binary.LittleEndian.Uint16(extra[:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if len(extra) < 4+size {
			break
		}
		data := extra[4 : 4+size]
		extra = extra[4+size:]
		if tag != unicodePathTag || len(data) < 5 {
			continue
		}
		if binary.LittleEndian.Uint32(data[1:5]) == crc32.ChecksumIEEE([]byte(fh.Name)) {
			return string(data[5:]), true
		}
	}
	decoded, err := charmap.CodePage437.NewDecoder().String(fh.Name)
	if err != nil {
		return fh.Name, false
	}
	return decoded, false
}
