package firmware

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/toolstring"
)

// image builds a valid image for a chip whose code size is stored in the
// image.
func image(icType string, staticOffset int, kib uint8, configuration byte) []byte {
	size := int(kib) * 1024
	buf := make([]byte, size)
	copy(buf[SignatureOffset:], SignatureHub)
	buf[CodeSizeOffset] = kib
	buf[ConfigurationOffset] = configuration
	binary.LittleEndian.PutUint16(buf[VersionOffset:], 0x0421)
	s := &toolstring.Static{
		ToolStringVersion: toolstring.VersionVendorSupport,
		MaskProjectICType: icType,
	}
	copy(buf[staticOffset:], s.Bytes())
	binary.BigEndian.PutUint16(buf[size-2:], Sum16(buf[:size-2]))
	return buf
}

func TestTemplateRoundTrip(t *testing.T) {
	data := NewTemplate().Write()
	if want, got := 0x6000, len(data); want != got {
		t.Fatalf("wanted %d bytes, got %d", want, got)
	}
	img, err := Parse(data, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := (devices.Chip{Model: devices.GL3523, Revision: 10}); img.Chip != want {
		t.Errorf("chip: wanted %s, got %s", want, img.Chip)
	}
	if want, got := "12.34", img.Version(); want != got {
		t.Errorf("version: wanted %s, got %s", want, got)
	}
	if want, got := uint32(0x6000), img.CodeSize; want != got {
		t.Errorf("code size: wanted 0x%x, got 0x%x", want, got)
	}
	if img.Signed {
		t.Errorf("template image should not be signed")
	}
	if img.Static == nil || img.Static.MaskProjectICType != "352310" {
		t.Errorf("static tool string not parsed: %+v", img.Static)
	}
}

func TestParseModels(t *testing.T) {
	for _, te := range []struct {
		name     string
		data     []byte
		chip     devices.Chip
		codeSize uint32
	}{
		{"gl3590", image("359010", staticOffsetGL3590, 0x40, 0), devices.Chip{Model: devices.GL3590, Revision: 10}, 0x10000},
		{"gl3525", image("352510", staticOffsetGL3525, 0x2c, 0), devices.Chip{Model: devices.GL3525, Revision: 10}, 0xb000},
		{"gl3525-v2", image("352510", staticOffsetGL3525V2, 0x2c, configurationNewFormatV2), devices.Chip{Model: devices.GL3525, Revision: 10}, 0xb000},
		{"gl3523-50", image("352350", staticOffsetGL3523, 0x20, 0), devices.Chip{Model: devices.GL3523, Revision: 50}, 0x8000},
	} {
		img, err := Parse(te.data, nil)
		if err != nil {
			t.Errorf("%s: %v", te.name, err)
			continue
		}
		if img.Chip != te.chip {
			t.Errorf("%s: wanted %s, got %s", te.name, te.chip, img.Chip)
		}
		if img.CodeSize != te.codeSize {
			t.Errorf("%s: wanted code size 0x%x, got 0x%x", te.name, te.codeSize, img.CodeSize)
		}
		if want, got := "04.21", img.Version(); want != got {
			t.Errorf("%s: wanted version %s, got %s", te.name, want, got)
		}
		if img.Static == nil {
			t.Errorf("%s: static tool string missing", te.name)
		}
	}
}

func TestParseErrors(t *testing.T) {
	data := NewTemplate().Write()

	corrupt := append([]byte(nil), data...)
	corrupt[0x10] ^= 0xff
	if _, err := Parse(corrupt, nil); !errors.Is(err, devices.ErrChecksumMismatch) {
		t.Errorf("corrupted image: wanted ErrChecksumMismatch, got %v", err)
	}
	if _, err := Parse(corrupt, &ParseOptions{IgnoreChecksum: true}); err != nil {
		t.Errorf("corrupted image with checksum ignored: %v", err)
	}

	badSig := append([]byte(nil), data...)
	copy(badSig[SignatureOffset:], "ABCD")
	if _, err := Parse(badSig, &ParseOptions{IgnoreChecksum: true}); !errors.Is(err, devices.ErrInvalidFile) {
		t.Errorf("bad signature: wanted ErrInvalidFile, got %v", err)
	}

	signed := append([]byte(nil), data...)
	copy(signed[SignatureOffset:], SignatureHubSigned)
	img, err := Parse(signed, &ParseOptions{IgnoreChecksum: true})
	if err != nil || !img.Signed {
		t.Errorf("signed image: %v, signed %v", err, img != nil && img.Signed)
	}

	if _, err := Parse(make([]byte, 0x6000), nil); !errors.Is(err, devices.ErrNotSupported) {
		t.Errorf("blank image: wanted ErrNotSupported, got %v", err)
	}
	if _, err := Parse(data[:0x100], nil); !errors.Is(err, devices.ErrInvalidFile) {
		t.Errorf("truncated image: wanted ErrInvalidFile, got %v", err)
	}
	// Code size claims more than the image holds.
	if _, err := Parse(image("359010", staticOffsetGL3590, 0x40, 0)[:0x8000], nil); !errors.Is(err, devices.ErrInvalidFile) {
		t.Errorf("short GL3590 image: wanted ErrInvalidFile, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	for _, size := range []uint32{2, 3, 0x100, 0x1001} {
		buf := make([]byte, size)
		for i := range buf[:size-2] {
			buf[i] = byte(i*7 + 3)
		}
		binary.BigEndian.PutUint16(buf[size-2:], Sum16(buf[:size-2]))
		if err := Verify(buf, size); err != nil {
			t.Errorf("%d: %v", size, err)
		}
		buf[size-1] ^= 1
		if err := Verify(buf, size); !errors.Is(err, devices.ErrChecksumMismatch) {
			t.Errorf("%d: wanted ErrChecksumMismatch, got %v", size, err)
		}
	}
	if err := Verify([]byte{0}, 1); !errors.Is(err, devices.ErrInvalidFile) {
		t.Errorf("code size 1: wanted ErrInvalidFile, got %v", err)
	}
	// 0x101 * 0xff == 0x100ff, truncated.
	if want, got := uint16(0x00ff), Sum16(bytes.Repeat([]byte{0xff}, 0x101)); want != got {
		t.Errorf("Sum16 overflow: wanted 0x%04x, got 0x%04x", want, got)
	}
}

func TestExportBuild(t *testing.T) {
	tmpl := NewTemplate()
	tmpl.Static.MaskProjectCode = "GLHB"
	tmpl.Static.MaskProjectHardware = "1"
	tmpl.Static.FirmwareVersion = "1234"
	img, err := Parse(tmpl.Write(), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := img.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), "<key>mask_project_hardware</key>") || !strings.Contains(buf.String(), "<string>A</string>") {
		t.Errorf("unexpected export:\n%s", buf.String())
	}

	built, err := BuildTemplate(buf.Bytes())
	if err != nil {
		t.Fatalf("BuildTemplate: %v", err)
	}
	if *built.Static != *tmpl.Static {
		t.Errorf("static tool string mismatch:\nwanted %+v\ngot    %+v", *tmpl.Static, *built.Static)
	}
	if built.VersionRaw != 0x1234 {
		t.Errorf("version: got 0x%04x", built.VersionRaw)
	}
	if !bytes.Equal(built.Write(), tmpl.Write()) {
		t.Errorf("rebuilt image differs")
	}

	if _, err := BuildTemplate([]byte(`<?xml version="1.0" encoding="UTF-8"?><plist version="1.0"><dict><key>mask_project_ic_type</key><string>3523</string></dict></plist>`)); err == nil {
		t.Errorf("missing tool_string_version should fail")
	}
}

func pubkey() []byte {
	var b bytes.Buffer
	b.WriteString("N = ")
	b.WriteString(strings.Repeat("a5", pubkeyModulusLen/2))
	b.WriteString("\r\nE = 010001\r\n")
	return b.Bytes()
}

func TestPublicKey(t *testing.T) {
	raw := pubkey()
	if len(raw) != PublicKeySize {
		t.Fatalf("test key is %d bytes", len(raw))
	}
	k, err := ParsePublicKey(raw)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if want, got := "010001", k.Exponent(); want != got {
		t.Errorf("exponent: wanted %q, got %q", want, got)
	}
	if len(k.Modulus()) != pubkeyModulusLen {
		t.Errorf("modulus length %d", len(k.Modulus()))
	}
	if !k.Equal(append(raw, 0xde, 0xad)) {
		t.Errorf("key should equal itself")
	}

	for _, mutate := range []func([]byte){
		func(b []byte) { b[0] = 'X' },
		func(b []byte) { b[pubkeyExponentTag] = 'X' },
	} {
		bad := pubkey()
		mutate(bad)
		if _, err := ParsePublicKey(bad); !errors.Is(err, devices.ErrSignatureInvalid) {
			t.Errorf("wanted ErrSignatureInvalid, got %v", err)
		}
	}
	if _, err := ParsePublicKey(raw[:0x100]); !errors.Is(err, devices.ErrSignatureInvalid) {
		t.Errorf("truncated key: wanted ErrSignatureInvalid, got %v", err)
	}
}

func TestDecompress(t *testing.T) {
	data := NewTemplate().Write()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.Write(data)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("decompressed data differs")
	}
	got, err = Decompress(data)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("plain data should pass through: %v", err)
	}
}
