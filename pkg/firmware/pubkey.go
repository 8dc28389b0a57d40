package firmware

import (
	"bytes"
	"fmt"

	"github.com/hubisp/glhub/pkg/devices"
)

const (
	// PublicKeySize is the size of the RSA public key blob appended to signed
	// images: "N = " + 512 hex chars + "\r\n" + "E = " + 6 hex chars + "\r\n".
	PublicKeySize = 0x212
	SignatureSize = 0x100
	// ExtendSize is everything following the code of a signed image.
	ExtendSize = PublicKeySize + SignatureSize
)

const (
	pubkeyModulusLen  = 0x200
	pubkeyExponentLen = 6
	pubkeyModulusOff  = 4
	pubkeyExponentTag = pubkeyModulusOff + pubkeyModulusLen + 2
	pubkeyExponentOff = pubkeyExponentTag + 4
)

var (
	pubkeyModulusPrefix  = []byte("N = ")
	pubkeyExponentPrefix = []byte("E = ")
)

// PublicKey is the public key blob stored after the code of signed hub
// firmware, and after the code of the firmware in bank 1.
type PublicKey [PublicKeySize]byte

// ParsePublicKey validates and copies a public key blob from the start of b.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	if len(b) < PublicKeySize {
		return nil, fmt.Errorf("%w: public key truncated (%d bytes)", devices.ErrSignatureInvalid, len(b))
	}
	if !bytes.HasPrefix(b, pubkeyModulusPrefix) || !bytes.HasPrefix(b[pubkeyExponentTag:], pubkeyExponentPrefix) {
		return nil, fmt.Errorf("%w: public key tags missing", devices.ErrSignatureInvalid)
	}
	var k PublicKey
	copy(k[:], b)
	return &k, nil
}

// Modulus returns the hex encoded RSA modulus.
func (k *PublicKey) Modulus() string {
	return string(k[pubkeyModulusOff : pubkeyModulusOff+pubkeyModulusLen])
}

// Exponent returns the hex encoded RSA public exponent.
func (k *PublicKey) Exponent() string {
	return string(k[pubkeyExponentOff : pubkeyExponentOff+pubkeyExponentLen])
}

// Equal returns whether b starts with the same key.
func (k *PublicKey) Equal(b []byte) bool {
	return len(b) >= PublicKeySize && bytes.Equal(k[:], b[:PublicKeySize])
}
