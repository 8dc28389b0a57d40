package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hubisp/glhub/pkg/backup"
	"github.com/hubisp/glhub/pkg/firmware"
	"github.com/hubisp/glhub/pkg/isp"
)

var (
	updateForce          bool
	updateIgnoreChecksum bool
	updateNoBackup       bool
	updateReplugTimeout  = 30 * time.Second
)

var updateCmd = &cobra.Command{
	Use:   "update [file]",
	Short: "Update the hub firmware",
	Long: `Write a hub firmware image to a connected hub. On dual bank hubs the recovery
bank is written and verified first when needed, so that the hub always has a
bootable bank. Both banks are saved to the data directory beforehand.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := firmware.Load(args[0])
		if err != nil {
			return err
		}

		h, err := openHub(ctx)
		if err != nil {
			return err
		}
		defer h.Close()

		img, err := h.dev.Prepare(data, &isp.PrepareOptions{
			Force:          updateForce,
			IgnoreChecksum: updateIgnoreChecksum,
		})
		if err != nil {
			return fmt.Errorf("image rejected: %w", err)
		}
		slog.Info("Image accepted", "chip", img.Chip.String(), "version", img.Version(), "size", len(data))
		if img.Chip.Model != h.info.Chip.Model {
			slog.Warn("Image is for a different chip", "image", img.Chip.String(), "hub", h.info.Chip.String())
		}
		slog.Info("Updating", "plan", h.info.Plan.String())

		if !updateNoBackup {
			if _, err := backup.SaveBanks(ctx, h.dev, h.info, time.Now()); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
		}

		start := time.Now()
		if err := h.dev.WriteFirmware(ctx, data, phaseBars); err != nil {
			return err
		}
		slog.Info("Firmware written", "seconds", int(time.Since(start).Seconds()))

		if err := h.dev.Exit(); err != nil {
			return err
		}
		wctx, cancel := context.WithTimeout(ctx, updateReplugTimeout)
		defer cancel()
		if err := h.WaitReplug(wctx); err != nil {
			return fmt.Errorf("hub did not come back: %w", err)
		}
		slog.Info("Done!")
		return nil
	},
}
