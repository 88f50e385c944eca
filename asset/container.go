package asset

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Binary container layout: a fixed magic, a small fixed header, then a
// sequence of chunks. Each chunk has a 4-byte name, a compressed and an
// uncompressed length, and an lz4 block-compressed payload (raw when the
// compressed length is zero). Instance class names live in INST chunks.
var binaryMagic = []byte("<roblox!\x89\xff\r\n\x1a\n")

const (
	binaryHeaderLen = 18 // version u16 + class count u32 + instance count u32 + 8 reserved
	chunkHeaderLen  = 16 // name [4]byte + compressed u32 + uncompressed u32 + 4 reserved

	// maxChunkSize bounds decompression so a corrupt length field
	// cannot allocate unbounded memory.
	maxChunkSize = 64 << 20
)

var errTruncatedContainer = errors.New("truncated binary container")

// peekBinaryContainer reads just enough of a binary scene container to
// collect the declared instance class names. It walks the chunk list,
// decompressing only INST chunks, and stops at the END marker.
func peekBinaryContainer(data []byte) ([]string, error) {
	if !bytes.HasPrefix(data, binaryMagic) {
		return nil, errors.New("not a binary scene container (bad magic)")
	}

	rest := data[len(binaryMagic):]
	if len(rest) < binaryHeaderLen {
		return nil, errTruncatedContainer
	}
	rest = rest[binaryHeaderLen:]

	var classes []string
	for {
		if len(rest) == 0 {
			// A well-formed container ends with an END chunk; running
			// off the end means the file was cut short.
			return nil, errTruncatedContainer
		}
		if len(rest) < chunkHeaderLen {
			return nil, errTruncatedContainer
		}

		name := string(rest[0:4])
		compressedLen := binary.LittleEndian.Uint32(rest[4:8])
		uncompressedLen := binary.LittleEndian.Uint32(rest[8:12])
		rest = rest[chunkHeaderLen:]

		payloadLen := compressedLen
		if compressedLen == 0 {
			payloadLen = uncompressedLen
		}
		if uint64(payloadLen) > uint64(len(rest)) || uncompressedLen > maxChunkSize {
			return nil, errTruncatedContainer
		}
		payload := rest[:payloadLen]
		rest = rest[payloadLen:]

		switch name {
		case "END\x00":
			return classes, nil
		case "INST":
			decoded, err := decodeChunk(payload, compressedLen, uncompressedLen)
			if err != nil {
				return nil, fmt.Errorf("INST chunk: %w", err)
			}
			class, err := instClassName(decoded)
			if err != nil {
				return nil, fmt.Errorf("INST chunk: %w", err)
			}
			classes = append(classes, class)
		default:
			// Other chunk kinds (META, PROP, PRNT, ...) carry no type
			// tags; skip without decompressing.
		}
	}
}

func decodeChunk(payload []byte, compressedLen, uncompressedLen uint32) ([]byte, error) {
	if compressedLen == 0 {
		return payload, nil
	}
	out := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(payload, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint32(n) != uncompressedLen {
		return nil, fmt.Errorf("lz4 decompress: want %d bytes, got %d", uncompressedLen, n)
	}
	return out, nil
}

// instClassName extracts the class name from a decoded INST chunk:
// class id u32, name length u32, name bytes.
func instClassName(chunk []byte) (string, error) {
	if len(chunk) < 8 {
		return "", errTruncatedContainer
	}
	nameLen := binary.LittleEndian.Uint32(chunk[4:8])
	if uint64(8+nameLen) > uint64(len(chunk)) {
		return "", errTruncatedContainer
	}
	return string(chunk[8 : 8+nameLen]), nil
}

// peekXMLContainer reads the XML container variant far enough to
// collect the class attributes of top-level <Item> elements.
func peekXMLContainer(data []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var (
		classes []string
		sawRoot bool
		depth   int
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse XML container: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if el.Name.Local != "roblox" {
					return nil, fmt.Errorf("unexpected root element %q", el.Name.Local)
				}
				sawRoot = true
				continue
			}
			if depth == 2 && el.Name.Local == "Item" {
				var class string
				for _, attr := range el.Attr {
					if attr.Name.Local == "class" {
						class = attr.Value
					}
				}
				if class == "" {
					return nil, errors.New("Item element missing class attribute")
				}
				classes = append(classes, class)
			}
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return nil, errors.New("not an XML scene container (no root element)")
	}
	return classes, nil
}
