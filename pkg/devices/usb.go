package devices

import (
	"fmt"
	"time"
)

// Usb describes the API used to talk to a Genesys Logic hub over USB. All
// flash access goes through vendor control transfers on the default
// interface, so that's all a provider needs to implement.
type Usb interface {
	// Control sends a control request to the device.
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)

	SetControlTimeout(time.Duration) error

	// Release returns the bcdDevice field of the device descriptor.
	Release() uint16
	// Spec returns the bcdUSB field of the device descriptor.
	Spec() uint16

	// Close disposes of this device. No other functions may be called on the
	// interface afterwards.
	Close() error
}

const (
	// RequestTypeVendorIn is a device-to-host vendor request to the device.
	RequestTypeVendorIn uint8 = 0xc0
	// RequestTypeVendorOut is a host-to-device vendor request to the device.
	RequestTypeVendorOut uint8 = 0x40

	requestTypeStandardIn uint8 = 0x80
	requestGetDescriptor  uint8 = 0x06
	descriptorTypeString  uint16 = 0x03
	langIDEnglishUS       uint16 = 0x0409
)

// ReadStringDescriptor returns the raw bytes of a string descriptor,
// including its two byte length/type header. Genesys tool strings carry
// binary fields, so the usual UTF-16 decoding done by USB libraries would
// mangle them.
func ReadStringDescriptor(usb Usb, index uint8) ([]byte, error) {
	buf := make([]byte, 64)
	n, err := usb.Control(requestTypeStandardIn, requestGetDescriptor, descriptorTypeString<<8|uint16(index), langIDEnglishUS, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: string descriptor 0x%02x: %v", ErrBus, index, err)
	}
	if n > len(buf) {
		n = len(buf)
	}
	return buf[:n], nil
}
