// Package fru packs and unpacks JFRU board-information images, the 512-byte
// record stored at the start of a board's EEPROM.
package fru

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	Magic      = "JFRU"
	Version    = 0x0001
	HeaderLen  = 0x40
	TotalLen   = 512
	FieldLen   = 16
	payloadLen = TotalLen - HeaderLen
)

// header offsets
const (
	offMagic      = 0x00
	offVersion    = 0x04
	offHeaderLen  = 0x06
	offTotalLen   = 0x08
	offPayloadCRC = 0x0C
	offHeaderCRC  = 0x10
)

// payload offsets, relative to HeaderLen
const (
	offSerial  = 0x00
	offPart    = 0x10
	offMAC     = 0x20
	offMfgDate = 0x30
	offFlags   = 0x34
)

var (
	ErrBadMagic   = errors.New("not a JFRU image")
	ErrBadLength  = errors.New("unexpected image length")
	ErrBadVersion = errors.New("unsupported image version")
	ErrChecksum   = errors.New("checksum mismatch")
)

// Record is the board information carried by an image. Text fields are
// ASCII and hold at most FieldLen bytes.
type Record struct {
	Serial  string `json:"serial" yaml:"serial"`
	Part    string `json:"part" yaml:"part"`
	MAC     string `json:"mac" yaml:"mac"`
	MfgDate uint32 `json:"mfg_date" yaml:"mfg_date"`
	Flags   uint8  `json:"flags" yaml:"flags"`
}

// Decode reads a record description. JSON is accepted as well as YAML.
func Decode(r io.Reader) (Record, error) {
	var rec Record
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("could not decode record: %w", err)
	}
	return rec, nil
}

// Pack builds the image for rec. Non-ASCII characters are dropped and text
// longer than FieldLen is cut.
func Pack(rec Record) []byte {
	img := make([]byte, TotalLen)
	payload := img[HeaderLen:]
	putASCII(payload[offSerial:offSerial+FieldLen], rec.Serial)
	putASCII(payload[offPart:offPart+FieldLen], rec.Part)
	putASCII(payload[offMAC:offMAC+FieldLen], rec.MAC)
	binary.LittleEndian.PutUint32(payload[offMfgDate:], rec.MfgDate)
	payload[offFlags] = rec.Flags

	copy(img[offMagic:], Magic)
	binary.LittleEndian.PutUint16(img[offVersion:], Version)
	binary.LittleEndian.PutUint16(img[offHeaderLen:], HeaderLen)
	binary.LittleEndian.PutUint32(img[offTotalLen:], TotalLen)
	binary.LittleEndian.PutUint32(img[offPayloadCRC:], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(img[offHeaderCRC:], headerCRC(img))
	return img
}

// Unpack checks the header and both checksums of img and returns the record.
func Unpack(img []byte) (Record, error) {
	if len(img) < TotalLen {
		return Record{}, fmt.Errorf("%w: %d bytes, want %d", ErrBadLength, len(img), TotalLen)
	}
	if string(img[offMagic:offMagic+4]) != Magic {
		return Record{}, fmt.Errorf("%w: magic %q", ErrBadMagic, img[offMagic:offMagic+4])
	}
	if v := binary.LittleEndian.Uint16(img[offVersion:]); v != Version {
		return Record{}, fmt.Errorf("%w: %#04x", ErrBadVersion, v)
	}
	hl := binary.LittleEndian.Uint16(img[offHeaderLen:])
	tl := binary.LittleEndian.Uint32(img[offTotalLen:])
	if hl != HeaderLen || tl != TotalLen {
		return Record{}, fmt.Errorf("%w: header %d, total %d", ErrBadLength, hl, tl)
	}
	img = img[:TotalLen]
	if want, got := binary.LittleEndian.Uint32(img[offHeaderCRC:]), headerCRC(img); want != got {
		return Record{}, fmt.Errorf("%w: header crc %#08x, computed %#08x", ErrChecksum, want, got)
	}
	payload := img[HeaderLen:]
	if want, got := binary.LittleEndian.Uint32(img[offPayloadCRC:]), crc32.ChecksumIEEE(payload); want != got {
		return Record{}, fmt.Errorf("%w: payload crc %#08x, computed %#08x", ErrChecksum, want, got)
	}
	return Record{
		Serial:  getASCII(payload[offSerial : offSerial+FieldLen]),
		Part:    getASCII(payload[offPart : offPart+FieldLen]),
		MAC:     getASCII(payload[offMAC : offMAC+FieldLen]),
		MfgDate: binary.LittleEndian.Uint32(payload[offMfgDate:]),
		Flags:   payload[offFlags],
	}, nil
}

// Checksums returns the payload and header CRCs stored in a packed image.
func Checksums(img []byte) (payload, header uint32) {
	return binary.LittleEndian.Uint32(img[offPayloadCRC:]), binary.LittleEndian.Uint32(img[offHeaderCRC:])
}

// headerCRC is computed over the header with its own crc field zeroed.
func headerCRC(img []byte) uint32 {
	var hdr [HeaderLen]byte
	copy(hdr[:], img[:HeaderLen])
	clear(hdr[offHeaderCRC : offHeaderCRC+4])
	return crc32.ChecksumIEEE(hdr[:])
}

func putASCII(dst []byte, s string) {
	n := 0
	for i := 0; i < len(s) && n < len(dst); i++ {
		if s[i] < 0x80 {
			dst[n] = s[i]
			n++
		}
	}
	clear(dst[n:])
}

func getASCII(src []byte) string {
	for i, b := range src {
		if b == 0x00 {
			return string(src[:i])
		}
	}
	return string(src)
}
