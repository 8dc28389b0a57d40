package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hubisp/glhub/pkg/firmware"
)

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Firmware file tools",
	Long:  "Inspect hub firmware images and their metadata without a hub attached.",
}

var parseIgnoreChecksum bool

var firmwareParseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Show information about a firmware image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := firmware.Load(args[0])
		if err != nil {
			return err
		}
		img, err := firmware.Parse(data, &firmware.ParseOptions{IgnoreChecksum: parseIgnoreChecksum})
		if err != nil {
			return err
		}
		fmt.Printf("Chip: %s\n", img.Chip)
		fmt.Printf("Version: %s\n", img.Version())
		fmt.Printf("Code size: 0x%x\n", img.CodeSize)
		fmt.Printf("Checksum: 0x%04x\n", img.Checksum)
		fmt.Printf("Signed: %v\n", img.Signed)
		if img.Signed && uint32(len(data)) >= img.CodeSize+firmware.PublicKeySize {
			if key, err := firmware.ParsePublicKey(data[img.CodeSize:]); err == nil {
				fmt.Printf("Public key exponent: %s\n", key.Exponent())
			}
		}
		if img.Static != nil {
			fmt.Printf("Static tool string:\n")
			img.Static.Debug(os.Stdout)
		}
		return nil
	},
}

var firmwareExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the metadata of a firmware image as a plist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := firmware.Load(args[0])
		if err != nil {
			return err
		}
		img, err := firmware.Parse(data, &firmware.ParseOptions{IgnoreChecksum: true})
		if err != nil {
			return err
		}
		return img.Export(os.Stdout)
	},
}

var firmwareBuildCmd = &cobra.Command{
	Use:   "build [plist] [out]",
	Short: "Build a placeholder firmware image from exported metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not read metadata: %w", err)
		}
		t, err := firmware.BuildTemplate(meta)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], t.Write(), 0644); err != nil {
			return fmt.Errorf("could not write image: %w", err)
		}
		return nil
	},
}
