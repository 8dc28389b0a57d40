package isp

import (
	"fmt"

	"github.com/hubisp/glhub/pkg/devices"
)

// blankVersion is the version read from an erased bank.
const blankVersion uint16 = 0xffff

// Plan is which banks an update writes, and in what order. Bank1 is always
// written; the question is whether Bank2 (the recovery bank) is written
// first.
type Plan struct {
	// Target is the bank written first.
	Target devices.Bank
	// WriteRecoveryFirst is set when Bank2 is written and verified before
	// Bank1 is touched.
	WriteRecoveryFirst bool
	// ReuseFirstBank is set when the recovery bank gets a copy of what is
	// currently in Bank1 instead of the new image.
	ReuseFirstBank bool
}

// ComputePlan decides how to update a dual bank hub given the versions of the
// hub firmware in each bank, zero meaning blank or corrupt.
func ComputePlan(model devices.Model, versions [devices.BankCount]uint16) Plan {
	bank1, bank2 := versions[devices.Bank1], versions[devices.Bank2]
	p := Plan{
		Target: devices.Bank1,
	}
	switch {
	case bank1 == 0 && bank2 == 0:
		// Both blank, write both.
		p.Target = devices.Bank2
	case bank1 > bank2:
		// Keep the newer image in the recovery bank while Bank1 is
		// rewritten.
		p.Target = devices.Bank2
	}
	p.WriteRecoveryFirst = p.Target == devices.Bank2
	p.ReuseFirstBank = model == devices.GL3523 && bank1 != 0
	return p
}

func (p Plan) String() string {
	switch {
	case !p.WriteRecoveryFirst:
		return "write bank1"
	case p.ReuseFirstBank:
		return "copy bank1 to bank2, then write bank1"
	}
	return "write bank2, then bank1"
}

// FormatVersion formats a raw hub firmware version, zero meaning blank.
func FormatVersion(v uint16) string {
	if v == 0 {
		return "blank"
	}
	return fmt.Sprintf("%02x.%02x", v>>8, v&0xff)
}
