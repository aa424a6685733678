package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/audioqc/wavescan/internal/analysis"
	"github.com/audioqc/wavescan/internal/cli"
	"github.com/audioqc/wavescan/internal/raster"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Output  string `short:"o" type:"path" help:"Visualization output path"`
	Version bool   `short:"v" help:"Show version information"`
	Input   string `arg:"" name:"input" help:"Raw spectrogram PNG written by wavescan --fft" optional:""`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("fftvis"),
		kong.Description("Re-render a raw wavescan spectrogram as a colour image"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if cliArgs.Input == "" {
		cli.PrintError("No input file specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	output := cliArgs.Output
	if output == "" {
		output = strings.TrimSuffix(cliArgs.Input, filepath.Ext(cliArgs.Input)) + "-vis.png"
	}

	if err := render(cliArgs.Input, output); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", output)
}

// render decodes the float64 values packed into the raw spectrogram PNG
// and draws them with the analysis colour ramp. The PNG's pixel width is
// the row width of the data, so the image geometry survives the round
// trip.
func render(input, output string) error {
	pix, width, _, err := raster.ReadRGBA64(input)
	if err != nil {
		return err
	}
	if width < 1 || len(pix)%8 != 0 {
		return fmt.Errorf("%s does not hold float64 spectrogram data", input)
	}

	vis := analysis.NewVisualization()
	values := make([]float64, 0, len(pix)/8)
	for off := 0; off+8 <= len(pix); off += 8 {
		values = append(values, math.Float64frombits(binary.LittleEndian.Uint64(pix[off:])))
	}
	vis.Extend(values)

	return vis.Render(output, width)
}
