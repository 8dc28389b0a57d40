package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/exp/constraints"
)

var rootCmd = &cobra.Command{
	Use:   "glhub",
	Short: "glhub updates the firmware of Genesys Logic USB hubs",
	Long: `Inspects Genesys Logic USB hubs and updates their firmware over the ISP
protocol, keeping the recovery bank of dual bank hubs valid at all times.

Firmware files are accepted plain or xz compressed.`,
	SilenceUsage: true,
}

var verboseLog bool

func main() {
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "Write images signed with a different public key than the one on the hub")
	updateCmd.Flags().BoolVar(&updateIgnoreChecksum, "ignore-checksum", false, "Write images with a wrong checksum")
	updateCmd.Flags().BoolVar(&updateNoBackup, "no-backup", false, "Do not save the current banks before updating")
	updateCmd.Flags().DurationVar(&updateReplugTimeout, "replug-timeout", updateReplugTimeout, "How long to wait for the hub to come back after the update")
	firmwareParseCmd.Flags().BoolVar(&parseIgnoreChecksum, "ignore-checksum", false, "Do not verify the image checksum")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "Enable verbose debug logging")
	addConfigFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(updateCmd)
	firmwareCmd.AddCommand(firmwareParseCmd)
	firmwareCmd.AddCommand(firmwareExportCmd)
	firmwareCmd.AddCommand(firmwareBuildCmd)
	rootCmd.AddCommand(firmwareCmd)
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verboseLog {
			flag.Set("v", "2")
			flag.Set("logtostderr", "true")
		}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	rootCmd.ExecuteContext(ctx)
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}

// parseNumber parses a hex (0x prefixed) or decimal number. Bare hex is
// accepted if it isn't valid decimal.
func parseNumber[T constraints.Unsigned](s string) (T, error) {
	var err error
	var res uint64
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		res, err = strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number")
		}
	} else {
		res, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			res, err = strconv.ParseUint(s, 16, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number")
			}
		}
	}
	if uint64(T(res)) != res {
		return 0, fmt.Errorf("number out of range")
	}
	return T(res), nil
}
