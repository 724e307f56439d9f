// Package serial frames scene, probe-batch and baked-payload data for
// storage or transport: a fixed header (magic, version, uncompressed
// size, CRC32) around a zstd-compressed msgpack body.
package serial

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// magic identifies a serial-framed payload; the first four bytes of
// every Write output.
const magic = uint32(0x53414331) // "SAC1"

// VersionMajor is bumped for a wire-incompatible change to the header or
// body framing; Read refuses a buffer whose major version is newer than
// this one.
const VersionMajor = 1

// VersionMinor is bumped for additive, backward-compatible body
// changes; Read never rejects on minor mismatch, and Write always
// stamps the current minor.
const VersionMinor = 0

// headerSize is the fixed byte length of the framing header preceding
// the compressed body.
const headerSize = 4 + 1 + 1 + 4 + 4 // magic, major, minor, crc32, uncompressed size

// Kind identifies the payload a framed buffer carries, so Read can
// reject a buffer decoded into the wrong Go type before msgpack even
// sees it.
type Kind uint8

const (
	KindScene Kind = iota + 1
	KindProbeBatch
	KindBakedData
)

// Header is the fixed-size preamble written before every compressed
// body: enough to validate integrity and version before attempting to
// decompress or decode.
type Header struct {
	VersionMajor uint8
	VersionMinor uint8
	Kind         Kind
	CRC32        uint32
	Uncompressed uint32
}

// Write encodes obj as msgpack, compresses it with zstd, and writes a
// framed buffer: magic, Header, then the compressed body.
func Write(w io.Writer, kind Kind, obj any) error {
	body, err := msgpack.Marshal(obj)
	if err != nil {
		return fmt.Errorf("serial: marshal: %w", err)
	}
	crc := crc32.ChecksumIEEE(body)

	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("serial: new zstd writer: %w", err)
	}
	compressed := zw.EncodeAll(body, nil)
	if err := zw.Close(); err != nil {
		return fmt.Errorf("serial: close zstd writer: %w", err)
	}

	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	hdr[4] = VersionMajor
	hdr[5] = VersionMinor
	binary.BigEndian.PutUint32(hdr[6:10], crc)
	binary.BigEndian.PutUint32(hdr[10:14], uint32(len(body)))
	// Kind rides in the low byte of an otherwise-reserved trailing word
	// so a future minor version can widen it without moving CRC/size.
	var kindWord [4]byte
	binary.BigEndian.PutUint32(kindWord[:], uint32(kind))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(kindWord[:]); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// Read validates the framing header, decompresses the body, and
// decodes it into obj (a pointer). It refuses a buffer whose major
// version exceeds VersionMajor or whose Kind doesn't match want; an
// older minor version, or a minor version newer than this build
// understands, is accepted and any trailing unknown msgpack fields are
// silently ignored by the decoder.
func Read(r io.Reader, want Kind, obj any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(raw) < headerSize+4 {
		return fmt.Errorf("serial: buffer too short (%d bytes)", len(raw))
	}

	if got := binary.BigEndian.Uint32(raw[0:4]); got != magic {
		return fmt.Errorf("serial: bad magic %#x", got)
	}
	major := raw[4]
	if major > VersionMajor {
		return fmt.Errorf("serial: unsupported version %d.%d (this build understands major %d)", major, raw[5], VersionMajor)
	}
	crc := binary.BigEndian.Uint32(raw[6:10])
	uncompressed := binary.BigEndian.Uint32(raw[10:14])
	kind := Kind(binary.BigEndian.Uint32(raw[14:18]))
	if kind != want {
		return fmt.Errorf("serial: got kind %d, want %d", kind, want)
	}

	zr, err := zstd.NewReader(bytes.NewReader(raw[18:]))
	if err != nil {
		return fmt.Errorf("serial: new zstd reader: %w", err)
	}
	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("serial: decompress: %w", err)
	}
	if uint32(len(body)) != uncompressed {
		return fmt.Errorf("serial: decompressed size %d, header says %d", len(body), uncompressed)
	}
	if got := crc32.ChecksumIEEE(body); got != crc {
		return fmt.Errorf("serial: CRC mismatch (got %#x, want %#x)", got, crc)
	}

	return msgpack.Unmarshal(body, obj)
}
