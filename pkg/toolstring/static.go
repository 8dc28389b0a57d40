package toolstring

import (
	"fmt"
	"io"

	"github.com/hubisp/glhub/pkg/devices"
)

// StaticSize is the length of a serialized static tool string.
const StaticSize = 31

// Static is the static tool string. It describes the mask ROM project and the
// project of the firmware currently running.
type Static struct {
	ToolStringVersion Version

	MaskProjectCode     string
	MaskProjectHardware string
	MaskProjectFirmware string
	// MaskProjectICType is eg. 352310 for a GL3523 revision 10.
	MaskProjectICType string

	RunningProjectCode     string
	RunningProjectHardware string
	RunningProjectFirmware string
	RunningProjectICType   string

	// FirmwareVersion is MMmm for version MM.mm.
	FirmwareVersion string
}

var staticLayout = []struct {
	off, size int
	get       func(s *Static) *string
}{
	{1, 4, func(s *Static) *string { return &s.MaskProjectCode }},
	{5, 1, func(s *Static) *string { return &s.MaskProjectHardware }},
	{6, 2, func(s *Static) *string { return &s.MaskProjectFirmware }},
	{8, 6, func(s *Static) *string { return &s.MaskProjectICType }},
	{14, 4, func(s *Static) *string { return &s.RunningProjectCode }},
	{18, 1, func(s *Static) *string { return &s.RunningProjectHardware }},
	{19, 2, func(s *Static) *string { return &s.RunningProjectFirmware }},
	{21, 6, func(s *Static) *string { return &s.RunningProjectICType }},
	{27, 4, func(s *Static) *string { return &s.FirmwareVersion }},
}

// ICTypeOffset is the offset of the mask project IC type within a static tool
// string.
const ICTypeOffset = 8

func ParseStatic(buf []byte) (*Static, error) {
	if len(buf) < StaticSize {
		return nil, fmt.Errorf("static tool string too short: %d bytes", len(buf))
	}
	s := &Static{
		ToolStringVersion: Version(buf[0]),
	}
	for _, f := range staticLayout {
		*f.get(s) = field(buf, f.off, f.size)
	}
	return s, nil
}

// Bytes serializes the static tool string. Fields longer than their slot are
// truncated.
func (s *Static) Bytes() []byte {
	buf := make([]byte, StaticSize)
	buf[0] = byte(s.ToolStringVersion)
	for _, f := range staticLayout {
		copy(buf[f.off:f.off+f.size], *f.get(s))
	}
	return buf
}

// ParseICType decodes a six character IC type (eg. 352350) into a chip. The
// end-of-life GL3521 is accepted.
func ParseICType(icType string) (devices.Chip, error) {
	if len(icType) != 6 {
		return devices.Chip{}, fmt.Errorf("%w: malformed IC type %q", devices.ErrNotSupported, icType)
	}
	model := devices.ModelForICCode(icType[:4])
	if model == devices.ModelUnknown {
		return devices.Chip{}, fmt.Errorf("%w: unsupported IC type %s", devices.ErrNotSupported, icType)
	}
	d0, d1 := icType[4], icType[5]
	if d0 < '0' || d0 > '9' || d1 < '0' || d1 > '9' {
		return devices.Chip{}, fmt.Errorf("%w: malformed IC revision in %q", devices.ErrNotSupported, icType)
	}
	return devices.Chip{
		Model:    model,
		Revision: 10*int(d0-'0') + int(d1-'0'),
	}, nil
}

// Chip resolves the hub controller described by the static tool string.
// End-of-life models are rejected.
func (s *Static) Chip() (devices.Chip, error) {
	c, err := ParseICType(s.MaskProjectICType)
	if err != nil {
		return c, err
	}
	if c.Model == devices.GL3521 {
		return devices.Chip{}, fmt.Errorf("%w: IC type %s already EOL", devices.ErrNotSupported, s.MaskProjectICType)
	}
	return c, nil
}

func (s *Static) Debug(w io.Writer) {
	fmt.Fprintf(w, "      tool string version: %s\n", s.ToolStringVersion)
	fmt.Fprintf(w, "        mask project code: %s\n", s.MaskProjectCode)
	fmt.Fprintf(w, "    mask project hardware: %s\n", HardwareLetter(s.MaskProjectHardware))
	fmt.Fprintf(w, "    mask project firmware: %s\n", s.MaskProjectFirmware)
	fmt.Fprintf(w, "     mask project IC type: %s\n", s.MaskProjectICType)
	fmt.Fprintf(w, "     running project code: %s\n", s.RunningProjectCode)
	fmt.Fprintf(w, " running project hardware: %s\n", HardwareLetter(s.RunningProjectHardware))
	fmt.Fprintf(w, " running project firmware: %s\n", s.RunningProjectFirmware)
	fmt.Fprintf(w, "  running project IC type: %s\n", s.RunningProjectICType)
	fmt.Fprintf(w, "         firmware version: %s\n", s.FirmwareVersion)
}

// HardwareLetter maps a hardware revision digit to the letter printed on the
// part ('1' -> 'A', ...).
func HardwareLetter(hw string) string {
	if hw == "" {
		return hw
	}
	b := []byte(hw)
	b[0] += 0x10
	return string(b)
}
