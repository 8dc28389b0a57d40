package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"zappem.net/pub/debug/xxd"
)

var readCmd = &cobra.Command{
	Use:   "read [file]",
	Short: "Dump the hub's flash",
	Long:  "Read the whole flash chip of a connected hub into a file, or print a hex dump if no file is given. The hub is reset afterwards.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openHub(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		start := time.Now()
		data, err := h.dev.Dump(cmd.Context(), newBar("read"))
		if err != nil {
			return err
		}
		took := time.Since(start)
		slog.Info("Done!", "bytes", len(data), "seconds", int(took.Seconds()))

		if len(args) == 0 {
			xxd.Print(0, data)
			return nil
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("could not write flash dump: %w", err)
		}
		return nil
	},
}
