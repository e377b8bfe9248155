// cancelfile feeds two WAV files through the switch-gate echo suppressor:
// a render (far-end reference) file and a capture (microphone) file. It
// writes the gated capture signal to an output WAV and prints a per-block
// diagnostic line to stderr.
//
// Usage:
//
//	cancelfile [flags] <render.wav> <capture.wav>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/mines-audio/echogate/pkg/audio"
	"github.com/mines-audio/echogate/pkg/suppressor"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	var (
		output = flag.String("output", "processed.wav", "Path to output WAV (PCM16 mono)")
		rate   = flag.Int("rate", envInt("ECHOGATE_SAMPLE_RATE", 16000), "Sample rate in Hz")
		tuning = flag.String("tuning", os.Getenv("ECHOGATE_TUNING"), "Path to YAML tuning file (optional)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <render.wav> <capture.wav>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	renderPath := flag.Arg(0)
	capturePath := flag.Arg(1)

	cfg := suppressor.DefaultConfig()
	if *tuning != "" {
		loaded, err := suppressor.LoadConfig(*tuning)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	render, err := audio.ReadWavPCM16Mono(renderPath, *rate)
	if err != nil {
		log.Fatal(err)
	}
	capture, err := audio.ReadWavPCM16Mono(capturePath, *rate)
	if err != nil {
		log.Fatal(err)
	}

	sup := suppressor.New(*rate, cfg)
	block := sup.BlockSamples()

	n := len(render)
	if len(capture) < n {
		n = len(capture)
	}
	blocks := n / block
	if blocks == 0 {
		log.Fatal("not enough samples for a single block")
	}

	fmt.Fprintf(os.Stderr,
		"config: atten=%.1f dB, rho=%.2f, ratio=%.2f, hang=%d, attack=%.3f, release=%.3f, metric=%s\n",
		cfg.AttenuationDB, cfg.SimilarityThreshold, cfg.PowerRatioCeiling,
		cfg.HangoverBlocks, cfg.Attack, cfg.Release, cfg.Metric)

	processed := make([]int16, blocks*block)
	farBlock := make([]float64, block)
	nearBlock := make([]float64, block)
	outBlock := make([]float64, block)

	for b := 0; b < blocks; b++ {
		off := b * block
		audio.PCM16ToFloat64(render[off:off+block], farBlock)
		audio.PCM16ToFloat64(capture[off:off+block], nearBlock)

		res := sup.ProcessBlock(farBlock, nearBlock, outBlock)
		audio.Float64ToPCM16(outBlock, processed[off:off+block])

		rep := suppressor.Report{
			Block:      uint64(b),
			Gain:       res.Gain,
			Lag:        res.Lag,
			Suppressed: res.Suppressed,
		}
		fmt.Fprintln(os.Stderr, rep)
	}

	if err := audio.WriteWavFile(*output, processed, *rate); err != nil {
		log.Fatal(err)
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
