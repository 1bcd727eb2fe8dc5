package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/common"
)

// GLB container constants.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
const (
	glbMagic      uint32 = 0x46546C67 // "glTF"
	glbVersion    uint32 = 2
	glbChunkJSON  uint32 = 0x4E4F534A // "JSON"
	glbChunkBIN   uint32 = 0x004E4942 // "BIN\0"
	glbHeaderSize        = 12
	glbChunkHead         = 8
)

// glbHeader is the 12-byte file header.
type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// glbChunk is one chunk; Data aliases the input.
type glbChunk struct {
	Type uint32
	Data []byte
}

// glbContainer is a decoded GLB file, or a bare JSON document wrapped as a single JSON chunk.
type glbContainer struct {
	Header glbHeader
	Chunks []glbChunk

	// Bare is true when the input was plain glTF JSON.
	Bare bool
}

// JSON returns the JSON chunk payload.
func (c *glbContainer) JSON() []byte {
	if len(c.Chunks) == 0 {
		return nil
	}
	return c.Chunks[0].Data
}

// Binary returns the BIN chunk payload, or nil if there is none.
func (c *glbContainer) Binary() []byte {
	if len(c.Chunks) < 2 {
		return nil
	}
	return c.Chunks[1].Data
}

// isGLB reports whether data should be read as a GLB container.
func isGLB(data []byte, filename string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".glb") {
		return true
	}
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic
}

// readGLBContainer splits data into its chunks without copying.
// Input that is neither named *.glb nor starts with the GLB magic is returned as a bare JSON container.
//
// Parameters:
//   - data: the file contents
//   - filename: the name hint used to detect GLB input
//
// Returns:
//   - *glbContainer: the container
//   - error: error if the GLB structure is invalid
func readGLBContainer(data []byte, filename string) (*glbContainer, error) {
	if !isGLB(data, filename) {
		return &glbContainer{
			Chunks: []glbChunk{{Type: glbChunkJSON, Data: data}},
			Bare:   true,
		}, nil
	}

	if len(data) < glbHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedContainer, len(data))
	}

	var header glbHeader
	if err := binary.Read(bytes.NewReader(data[:glbHeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != glbVersion {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedContainerVersion, header.Version)
	}
	if header.Length == 0 || int(header.Length) > len(data) {
		return nil, fmt.Errorf("%w: header length %d, data length %d", ErrTruncatedContainer, header.Length, len(data))
	}

	total := int(header.Length)
	var chunks []glbChunk
	offset := glbHeaderSize
	for offset < total {
		if offset+glbChunkHead > total {
			return nil, fmt.Errorf("%w: chunk header at %d", ErrChunkOverrun, offset)
		}
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		kind := binary.LittleEndian.Uint32(data[offset+4:])
		start := offset + glbChunkHead
		if length < 0 || start+length > total {
			return nil, fmt.Errorf("%w: chunk %d declares %d bytes at %d of %d", ErrChunkOverrun, len(chunks), length, start, total)
		}
		chunks = append(chunks, glbChunk{Type: kind, Data: data[start : start+length : start+length]})
		offset = common.AlignUp(start+length, 4)
	}

	if len(chunks) != 1 && len(chunks) != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkCount, len(chunks))
	}
	if chunks[0].Type != glbChunkJSON {
		return nil, fmt.Errorf("%w: type 0x%08x", ErrMissingJSONChunk, chunks[0].Type)
	}
	if len(chunks) == 2 && chunks[1].Type != glbChunkBIN {
		return nil, fmt.Errorf("%w: type 0x%08x", ErrUnexpectedChunkType, chunks[1].Type)
	}

	return &glbContainer{Header: header, Chunks: chunks}, nil
}

// Encode serializes the container as GLB. JSON chunks are padded with spaces, others with zeros.
//
// Returns:
//   - []byte: the GLB bytes
func (c *glbContainer) Encode() []byte {
	length := glbHeaderSize
	for _, ch := range c.Chunks {
		length += glbChunkHead + common.AlignUp(len(ch.Data), 4)
	}

	var buf bytes.Buffer
	buf.Grow(length)
	_ = binary.Write(&buf, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(length)})
	for _, ch := range c.Chunks {
		padded := common.AlignUp(len(ch.Data), 4)
		_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(padded), ch.Type})
		buf.Write(ch.Data)
		pad := byte(0)
		if ch.Type == glbChunkJSON {
			pad = ' '
		}
		for i := len(ch.Data); i < padded; i++ {
			buf.WriteByte(pad)
		}
	}
	return buf.Bytes()
}
