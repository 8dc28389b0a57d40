package firmware

import (
	"encoding/binary"
	"fmt"
	"io"

	"howett.net/plist"

	"github.com/hubisp/glhub/pkg/toolstring"
)

// templateSize is the size of images emitted by Template.Write. They follow
// the GL3523 layout.
const templateSize = 0x6000

// Template describes a synthetic image, used for tests and for building
// placeholder images out of exported metadata.
type Template struct {
	Static     *toolstring.Static
	VersionRaw uint16
}

// NewTemplate returns a template for a GL3523 revision 10 image versioned
// 12.34.
func NewTemplate() *Template {
	return &Template{
		Static: &toolstring.Static{
			ToolStringVersion:    toolstring.VersionVendorSupport,
			MaskProjectICType:    "352310",
			RunningProjectICType: "352310",
		},
		VersionRaw: 0x1234,
	}
}

// Write emits the image. The result parses back with Parse as long as the
// static tool string describes a GL3521 or GL3523.
func (t *Template) Write() []byte {
	buf := make([]byte, templateSize)
	copy(buf[SignatureOffset:], SignatureHub)
	if t.Static != nil {
		copy(buf[staticOffsetGL3523:], t.Static.Bytes())
	}
	binary.LittleEndian.PutUint16(buf[VersionOffset:], t.VersionRaw)
	binary.BigEndian.PutUint16(buf[templateSize-2:], Sum16(buf[:templateSize-2]))
	return buf
}

// metadata is the exported form of an image's static tool string.
type metadata struct {
	ToolStringVersion      string `plist:"tool_string_version"`
	MaskProjectCode        string `plist:"mask_project_code,omitempty"`
	MaskProjectHardware    string `plist:"mask_project_hardware,omitempty"`
	MaskProjectFirmware    string `plist:"mask_project_firmware,omitempty"`
	MaskProjectICType      string `plist:"mask_project_ic_type,omitempty"`
	RunningProjectCode     string `plist:"running_project_code,omitempty"`
	RunningProjectHardware string `plist:"running_project_hardware,omitempty"`
	RunningProjectFirmware string `plist:"running_project_firmware,omitempty"`
	RunningProjectICType   string `plist:"running_project_ic_type,omitempty"`
	FirmwareVersion        string `plist:"firmware_version,omitempty"`
	Version                string `plist:"version,omitempty"`
}

// Export writes the image's static tool string as an XML plist.
func (i *Image) Export(w io.Writer) error {
	if i.Static == nil {
		return fmt.Errorf("image has no static tool string")
	}
	s := i.Static
	m := metadata{
		ToolStringVersion:      string([]byte{byte(s.ToolStringVersion)}),
		MaskProjectCode:        s.MaskProjectCode,
		MaskProjectHardware:    toolstring.HardwareLetter(s.MaskProjectHardware),
		MaskProjectFirmware:    s.MaskProjectFirmware,
		MaskProjectICType:      s.MaskProjectICType,
		RunningProjectCode:     s.RunningProjectCode,
		RunningProjectHardware: toolstring.HardwareLetter(s.RunningProjectHardware),
		RunningProjectFirmware: s.RunningProjectFirmware,
		RunningProjectICType:   s.RunningProjectICType,
		FirmwareVersion:        s.FirmwareVersion,
		Version:                i.Version(),
	}
	b, err := plist.MarshalIndent(m, plist.XMLFormat, "\t")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// BuildTemplate reads metadata previously written by Export into a template.
// Hardware letters are mapped back to digits.
func BuildTemplate(data []byte) (*Template, error) {
	var m metadata
	if _, err := plist.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not decode metadata: %w", err)
	}
	if len(m.ToolStringVersion) < 1 {
		return nil, fmt.Errorf("tool_string_version missing")
	}
	if m.MaskProjectCode != "" && len(m.MaskProjectCode) != 4 {
		return nil, fmt.Errorf("mask_project_code must be 4 characters, got %q", m.MaskProjectCode)
	}
	if m.MaskProjectICType != "" && len(m.MaskProjectICType) != 6 {
		return nil, fmt.Errorf("mask_project_ic_type must be 6 characters, got %q", m.MaskProjectICType)
	}
	t := NewTemplate()
	t.Static = &toolstring.Static{
		ToolStringVersion:      toolstring.Version(m.ToolStringVersion[0]),
		MaskProjectCode:        m.MaskProjectCode,
		MaskProjectHardware:    hardwareDigit(m.MaskProjectHardware),
		MaskProjectFirmware:    m.MaskProjectFirmware,
		MaskProjectICType:      m.MaskProjectICType,
		RunningProjectCode:     m.RunningProjectCode,
		RunningProjectHardware: hardwareDigit(m.RunningProjectHardware),
		RunningProjectFirmware: m.RunningProjectFirmware,
		RunningProjectICType:   m.RunningProjectICType,
		FirmwareVersion:        m.FirmwareVersion,
	}
	if m.Version != "" {
		var hi, lo uint8
		if _, err := fmt.Sscanf(m.Version, "%02x.%02x", &hi, &lo); err != nil {
			return nil, fmt.Errorf("malformed version %q: %w", m.Version, err)
		}
		t.VersionRaw = uint16(hi)<<8 | uint16(lo)
	}
	return t, nil
}

func hardwareDigit(letter string) string {
	if letter == "" {
		return letter
	}
	b := []byte(letter)
	b[0] -= 0x10
	return string(b)
}
