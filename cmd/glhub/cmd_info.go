package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/isp"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about a connected hub",
	Long:  "Identify the connected hub, its flash chip and the firmware in each bank, and show how an update would proceed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHub(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		printInfo(os.Stdout, h.Desc, h.info)
		return nil
	},
}

func printInfo(w io.Writer, desc *devices.Description, info *isp.Info) {
	fmt.Fprintf(w, "Hub: %s %s (%04x:%04x)\n", desc.Vendor, desc.Name, desc.VID, desc.PID)
	fmt.Fprintf(w, "Chip: %s\n", info.Chip)
	fmt.Fprintf(w, "Running from: %s\n", info.Dynamic.RunningBank)
	fmt.Fprintf(w, "Ports: %d SS, %d HS, bonding 0x%02x\n", info.Dynamic.SSPorts, info.Dynamic.HSPorts, info.Dynamic.Bonding)
	fmt.Fprintf(w, "Flash: %s (%s), %d KiB\n", info.Flash.Name, info.FlashID, info.Flash.Size/1024)

	fmt.Fprintf(w, "Static tool string:\n")
	info.Static.Debug(w)
	fmt.Fprintf(w, "Firmware info:\n")
	info.FirmwareInfo.Debug(w)

	fmt.Fprintf(w, "Memory map:\n")
	for t := devices.FwTypeHub; t < devices.FwTypeCount; t++ {
		if !info.Map.Has(t) {
			continue
		}
		fmt.Fprintf(w, "  %-13s bank1 0x%06x", t, info.Map.Addr(devices.Bank1, t))
		if info.Map.DualBank {
			fmt.Fprintf(w, ", bank2 0x%06x", info.Map.Addr(devices.Bank2, t))
		}
		fmt.Fprintf(w, ", size 0x%x\n", info.Map.Size(t))
	}
	if info.CodeSize != 0 {
		fmt.Fprintf(w, "Code size: 0x%x\n", info.CodeSize)
	}
	fmt.Fprintf(w, "Max firmware size: 0x%x\n", info.FirmwareSizeMax())

	fmt.Fprintf(w, "Bank1: %s\n", isp.FormatVersion(info.Versions[devices.Bank1]))
	if info.Map.DualBank {
		fmt.Fprintf(w, "Bank2: %s\n", isp.FormatVersion(info.Versions[devices.Bank2]))
		fmt.Fprintf(w, "Update plan: %s\n", info.Plan)
	}
	if info.HasScaler {
		fmt.Fprintf(w, "Scaler: attached, not updated\n")
	}
	if info.PublicKey != nil {
		fmt.Fprintf(w, "Public key exponent: %s\n", info.PublicKey.Exponent())
	}
	fmt.Fprintf(w, "Instance IDs:\n")
	for _, id := range info.InstanceIDs {
		fmt.Fprintf(w, "  %s\n", id)
	}
}
