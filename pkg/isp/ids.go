package isp

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/toolstring"
)

// hashGUID derives a stable GUID from arbitrary data.
func hashGUID(data []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, data).String()
}

func instanceKey(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

// instanceIDs builds the identifiers used to match firmware to a hub, from
// least to most specific.
func instanceIDs(desc *devices.Description, info *Info) []string {
	prefix := fmt.Sprintf("USB\\VID_%04X&PID_%04X", desc.VID, desc.PID)
	ic := info.Chip.ICType()
	bonding := fmt.Sprintf("%02X", info.Dynamic.Bonding)

	res := []string{
		fmt.Sprintf("%s&IC_%s", prefix, ic),
		fmt.Sprintf("%s&IC_%s&BONDING_%s", prefix, ic, bonding),
	}
	// Hubs running from mask ROM have no vendor customization.
	if info.Dynamic.RunningBank != toolstring.FwStatusMask {
		res = append(res, fmt.Sprintf("%s&VENDOR_%s&IC_%s&BONDING_%s&PORTNUM_%02X&VENDORSUP_%s",
			prefix, instanceKey(desc.Vendor), ic, bonding, info.Dynamic.PortNum(),
			strings.ToUpper(hashGUID(info.VendorSupport.Bytes()))))
	}
	if info.PublicKey != nil {
		res = append(res, fmt.Sprintf("%s&PUBKEY_%s", prefix, strings.ToUpper(hashGUID(info.PublicKey[:]))))
	}
	return res
}
