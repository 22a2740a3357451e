package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/palmpay/palmpay/internal/cli"
)

// consoleStatus renders engine progress on the terminal: styled status
// lines plus a progress bar while enrollment frames accumulate.
type consoleStatus struct {
	bar *progressbar.ProgressBar
}

func (c *consoleStatus) Status(msg string) {
	fmt.Println(cli.FormatInfo(msg)) //nolint:forbidigo // User-facing output
}

func (c *consoleStatus) Progress(done, total int) {
	if c.bar == nil {
		c.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stdout),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Capturing palm frames...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stdout)
			}),
		)
	}
	_ = c.bar.Set(done)
}
