// Command bsseval computes BSS_EVAL metrics for a set of separated stems.
//
// References and estimates are read from two directories holding one WAV
// file per target with matching names (e.g. vocals.wav, drums.wav).
//
// Usage:
//
//	bsseval refs/ estimates/
//	bsseval -mode v3 -win 1 -hop 0.5 refs/ estimates/
//	bsseval -permute -taps 256 refs/ estimates/
//
// Per-target medians over all frames are printed. Frames with undefined
// metrics (NaN) are left out of the medians.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	bsseval "github.com/tphakala/go-bss-eval"
)

const (
	// CLI defaults
	defaultWindowSeconds = 1.0
	minRequiredArgs      = 2
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Parse command line flags
	mode := flag.String("mode", "v4", "Evaluation mode: v3 (framewise, per-channel) or v4 (whole-track, spatial)")
	winSeconds := flag.Float64("win", defaultWindowSeconds, "Window length in seconds (0 = whole track)")
	hopSeconds := flag.Float64("hop", 0, "Hop length in seconds (0 = same as window)")
	taps := flag.Int("taps", bsseval.DefaultFilterLength, "Projection filter length in samples")
	permute := flag.Bool("permute", false, "Search the best estimate/reference assignment")
	skipSilent := flag.Bool("skip-silent", true, "Report NaN for silent frames instead of failing")
	parallel := flag.Bool("parallel", true, "Evaluate frames concurrently")
	verbose := flag.Bool("v", false, "Verbose output")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] reference_dir estimate_dir\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s refs/ est/                  # museval defaults (v4, 1s frames)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mode v3 -win 0 refs/ est/  # v3 over the whole track\n", os.Args[0])
		return fmt.Errorf("insufficient arguments")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	evalMode, err := bsseval.ParseMode(*mode)
	if err != nil {
		return err
	}

	refDir, estDir := args[0], args[1]
	targets, err := targetNames(refDir)
	if err != nil {
		return err
	}

	refs, err := loadStems(refDir, targets, *verbose)
	if err != nil {
		return err
	}
	ests, err := loadStems(estDir, targets, *verbose)
	if err != nil {
		return err
	}
	if refs.rate != ests.rate {
		return fmt.Errorf("sample rate mismatch: references %d Hz, estimates %d Hz", refs.rate, ests.rate)
	}

	config := bsseval.DefaultConfig()
	config.Mode = evalMode
	config.Window = secondsToSamples(*winSeconds, refs.rate)
	config.Hop = secondsToSamples(*hopSeconds, refs.rate)
	if config.Window == 0 {
		config.Hop = 0
	}
	config.FilterLength = *taps
	config.ComputePermutation = *permute
	config.SkipSilentFrames = *skipSilent
	config.EnableParallel = *parallel

	if *verbose {
		log.Printf("References: %s", refDir)
		log.Printf("Estimates: %s", estDir)
		log.Printf("Targets: %v", targets)
		log.Printf("Mode: %s", evalMode)
		log.Printf("Window: %d samples, hop: %d samples", config.Window, config.Hop)
		log.Printf("Filter length: %d taps", config.FilterLength)
		log.Printf("SIMD: %s", bsseval.SIMDInfo())
	}

	start := time.Now()
	res, err := bsseval.Evaluate(refs.signals, ests.signals, config)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if res.Status == bsseval.StatusEmpty {
		log.Printf("Warning: empty input, nothing evaluated")
		return nil
	}

	printSummary(os.Stdout, targets, res)
	fmt.Printf("\n%d frames, %d channels, %d Hz in %.2fs\n",
		len(res.Frames), refs.channels, refs.rate, elapsed.Seconds())

	return nil
}
