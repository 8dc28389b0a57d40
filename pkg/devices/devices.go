package devices

import "fmt"

type Model int

const (
	ModelUnknown Model = iota
	GL3521
	GL3523
	GL3590
	GL3525
)

func (m Model) String() string {
	switch m {
	case GL3521:
		return "GL3521"
	case GL3523:
		return "GL3523"
	case GL3590:
		return "GL3590"
	case GL3525:
		return "GL3525"
	}
	return "UNKNOWN"
}

// ICCode is the four character IC type prefix used in tool strings.
func (m Model) ICCode() string {
	switch m {
	case GL3521:
		return "3521"
	case GL3523:
		return "3523"
	case GL3590:
		return "3590"
	case GL3525:
		return "3525"
	}
	return "INVL"
}

// ModelForICCode returns the model for a four character IC type prefix, or
// ModelUnknown.
func ModelForICCode(code string) Model {
	for _, m := range []Model{GL3521, GL3523, GL3590, GL3525} {
		if m.ICCode() == code {
			return m
		}
	}
	return ModelUnknown
}

// Chip identifies a hub controller: model and a two digit revision.
type Chip struct {
	Model    Model
	Revision int
}

func (c Chip) String() string {
	return fmt.Sprintf("%s-%02d", c.Model, c.Revision)
}

// ICType is the six character IC type as it appears in tool strings, eg.
// 352350.
func (c Chip) ICType() string {
	return fmt.Sprintf("%s%02d", c.Model.ICCode(), c.Revision)
}

// Description is a known hub, as seen on the bus, along with the quirks that
// apply to it.
type Description struct {
	VID, PID uint16
	Vendor   string
	Name     string

	// HasPublicKey is set for hubs whose firmware carries an appended
	// public key. These need to be authenticated before entering ISP.
	HasPublicKey bool
	// HasScaler is set for hubs with an MStar scaler attached over I2C.
	HasScaler bool

	// Vendor command overrides. Zero means default.
	SwitchRequest uint8
	ReadRequest   uint8
	WriteRequest  uint8
}

var Descriptions = []Description{
	{
		VID:    0x05e3,
		PID:    0x0610,
		Vendor: "Genesys Logic",
		Name:   "USB2.0 Hub",
	},
	{
		VID:    0x05e3,
		PID:    0x0620,
		Vendor: "Genesys Logic",
		Name:   "USB3.1 Hub",
	},
	{
		VID:    0x05e3,
		PID:    0x0625,
		Vendor: "Genesys Logic",
		Name:   "USB3.2 Hub",
	},
	{
		VID:    0x05e3,
		PID:    0x0626,
		Vendor: "Genesys Logic",
		Name:   "USB3.2 Hub",
	},
}

// DescriptionFor returns the known hub with a given VID/PID.
func DescriptionFor(vid, pid uint16) (*Description, bool) {
	for i := range Descriptions {
		if Descriptions[i].VID == vid && Descriptions[i].PID == pid {
			return &Descriptions[i], true
		}
	}
	return nil, false
}
