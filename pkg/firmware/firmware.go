// Package firmware implements the Genesys Logic hub firmware container:
// chip detection from the embedded static tool string, code size and
// checksum verification, and version extraction.
package firmware

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/toolstring"
)

// Offsets within a hub firmware image.
const (
	CodeSizeOffset      = 0xfb
	SignatureOffset     = 0xfc
	ConfigurationOffset = 0x101
	VersionOffset       = 0x10e

	SignatureLength = 4
)

var (
	// SignatureHub is the signature of a plain hub firmware image.
	SignatureHub = []byte("XROM")
	// SignatureHubSigned is the signature of a hub firmware image followed by
	// a public key and signature.
	SignatureHubSigned = []byte("SROM")
)

// GL3525 configuration values selecting the second edition layout.
const (
	configurationNewFormat   = 0xcc
	configurationNewFormatV2 = 0xdd
)

// Offsets of the static tool string within an image, per layout.
const (
	staticOffsetGL3523   = 0x221
	staticOffsetGL3590   = 0x241
	staticOffsetGL3525   = 0x251
	staticOffsetGL3525V2 = 0x1e1
)

// chipProbes are tried in order when detecting which chip an image is for.
var chipProbes = []struct {
	offset int
	models []devices.Model
}{
	{staticOffsetGL3523, []devices.Model{devices.GL3521, devices.GL3523}},
	{staticOffsetGL3590, []devices.Model{devices.GL3590}},
	{staticOffsetGL3525, []devices.Model{devices.GL3525}},
	{staticOffsetGL3525V2, []devices.Model{devices.GL3525}},
}

const anyRevision = -1

type codeSizeKey struct {
	model    devices.Model
	revision int
}

// fixedCodeSizes are the code sizes of models which don't store their code
// size in the image. Zero means the image stores it.
var fixedCodeSizes = map[codeSizeKey]uint32{
	{devices.GL3521, anyRevision}: 0x5000,
	{devices.GL3523, anyRevision}: 0x6000,
	{devices.GL3523, 50}:          0,
	{devices.GL3590, anyRevision}: 0,
	{devices.GL3525, anyRevision}: 0,
}

// Image is a parsed hub firmware image.
type Image struct {
	Chip     devices.Chip
	CodeSize uint32
	// VersionRaw is the BCD-ish version word, 0x1234 for 12.34.
	VersionRaw uint16
	Checksum   uint16
	// Signed is set when the image carries the signed variant of the
	// signature. Signed images are followed by a public key.
	Signed bool
	// Static is the static tool string embedded in the image, if any.
	Static *toolstring.Static
	Data   []byte
}

// Version returns the image version formatted as hi.lo in hex.
func (i *Image) Version() string {
	return fmt.Sprintf("%02x.%02x", i.VersionRaw>>8, i.VersionRaw&0xff)
}

type ParseOptions struct {
	// IgnoreChecksum skips checksum verification.
	IgnoreChecksum bool
}

// Parse parses and validates a hub firmware image. The returned image aliases
// data.
func Parse(data []byte, opts *ParseOptions) (*Image, error) {
	if opts == nil {
		opts = &ParseOptions{}
	}
	chip, err := detectChip(data)
	if err != nil {
		return nil, err
	}
	img := &Image{
		Chip: chip,
		Data: data,
	}

	staticOffset, err := staticOffsetFor(chip.Model, data)
	if err != nil {
		return nil, err
	}
	if staticOffset+toolstring.StaticSize <= len(data) {
		img.Static, _ = toolstring.ParseStatic(data[staticOffset:])
	}

	img.CodeSize, err = codeSize(chip, data)
	if err != nil {
		return nil, err
	}

	if !opts.IgnoreChecksum {
		if err := Verify(data, img.CodeSize); err != nil {
			return nil, err
		}
	}
	if img.CodeSize >= 2 && int(img.CodeSize) <= len(data) {
		img.Checksum = binary.BigEndian.Uint16(data[img.CodeSize-2:])
	}

	if len(data) < VersionOffset+2 {
		return nil, fmt.Errorf("%w: image too small for version", devices.ErrInvalidFile)
	}
	img.VersionRaw = binary.LittleEndian.Uint16(data[VersionOffset:])

	sig := data[SignatureOffset : SignatureOffset+SignatureLength]
	switch {
	case bytes.Equal(sig, SignatureHub):
	case bytes.Equal(sig, SignatureHubSigned):
		img.Signed = true
	default:
		return nil, fmt.Errorf("%w: signature %q not supported", devices.ErrInvalidFile, sig)
	}

	glog.V(1).Infof("Parsed %s image, version %s, code size 0x%x", img.Chip, img.Version(), img.CodeSize)
	return img, nil
}

func detectChip(data []byte) (devices.Chip, error) {
	for _, p := range chipProbes {
		off := p.offset + toolstring.ICTypeOffset
		if off+6 > len(data) {
			return devices.Chip{}, fmt.Errorf("%w: image too small (%d bytes)", devices.ErrInvalidFile, len(data))
		}
		icType := string(data[off : off+6])
		model := devices.ModelForICCode(icType[:4])
		for _, m := range p.models {
			if m != model {
				continue
			}
			return toolstring.ParseICType(icType)
		}
	}
	return devices.Chip{}, fmt.Errorf("%w: unsupported IC", devices.ErrNotSupported)
}

func staticOffsetFor(model devices.Model, data []byte) (int, error) {
	switch model {
	case devices.GL3521, devices.GL3523:
		return staticOffsetGL3523, nil
	case devices.GL3590:
		return staticOffsetGL3590, nil
	case devices.GL3525:
		if len(data) <= ConfigurationOffset {
			return 0, fmt.Errorf("%w: image too small for configuration", devices.ErrInvalidFile)
		}
		switch data[ConfigurationOffset] {
		case configurationNewFormat, configurationNewFormatV2:
			return staticOffsetGL3525V2, nil
		}
		return staticOffsetGL3525, nil
	}
	return 0, fmt.Errorf("%w: unsupported model %s", devices.ErrNotSupported, model)
}

func codeSize(chip devices.Chip, data []byte) (uint32, error) {
	fixed, ok := fixedCodeSizes[codeSizeKey{chip.Model, chip.Revision}]
	if !ok {
		fixed, ok = fixedCodeSizes[codeSizeKey{chip.Model, anyRevision}]
	}
	if !ok {
		return 0, fmt.Errorf("%w: unsupported model %s", devices.ErrNotSupported, chip.Model)
	}
	if fixed != 0 {
		return fixed, nil
	}
	if len(data) <= CodeSizeOffset {
		return 0, fmt.Errorf("%w: image too small for code size", devices.ErrInvalidFile)
	}
	return 1024 * uint32(data[CodeSizeOffset]), nil
}

// Sum16 is the running 16-bit sum of all bytes.
func Sum16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// Verify checks that the big endian checksum stored in the last two bytes of
// the code matches the sum of all bytes before it.
func Verify(data []byte, codeSize uint32) error {
	if codeSize < 2 {
		return fmt.Errorf("%w: code size too small: %d bytes", devices.ErrInvalidFile, codeSize)
	}
	if int(codeSize) > len(data) {
		return fmt.Errorf("%w: code size 0x%x larger than image (0x%x)", devices.ErrInvalidFile, codeSize, len(data))
	}
	want := binary.BigEndian.Uint16(data[codeSize-2:])
	got := Sum16(data[:codeSize-2])
	if want != got {
		return fmt.Errorf("%w: got 0x%04x, expected 0x%04x", devices.ErrChecksumMismatch, got, want)
	}
	return nil
}
