package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/isp"
)

// newBar returns a progress callback drawing a bar, created once the total
// is known.
func newBar(description string) isp.Progress {
	var bar *progressbar.ProgressBar
	return func(done, total uint32) {
		if bar == nil {
			bar = progressbar.NewOptions(int(total),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionThrottle(100),
				progressbar.OptionOnCompletion(func() { fmt.Println() }),
			)
		}
		bar.Set(int(done))
	}
}

func phaseBars(bank devices.Bank, phase isp.Phase) isp.Progress {
	return newBar(fmt.Sprintf("%-5s %-6s", bank, phase))
}
