package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/media-luna/landmarkid/internal/audio"
	"github.com/media-luna/landmarkid/internal/config"
	"github.com/media-luna/landmarkid/internal/fingerprint"
	"github.com/media-luna/landmarkid/internal/index"
	"github.com/media-luna/landmarkid/internal/logger"
	"github.com/media-luna/landmarkid/internal/matcher"
)

func paramsFrom(cfg config.Config) fingerprint.Params {
	return fingerprint.Params{
		SampleRate:   cfg.Spectrogram.SampleRate,
		WindowSize:   cfg.Spectrogram.WindowSize,
		HopSize:      cfg.Spectrogram.HopSize,
		TimeRadius:   cfg.Peaks.TimeRadius,
		FreqRadius:   cfg.Peaks.FreqRadius,
		MinMagnitude: float32(cfg.Peaks.MinMagnitude),
		Hash: fingerprint.HashParams{
			DeltaTMin:         uint32(cfg.Hashing.DeltaTMin),
			DeltaTMax:         uint32(cfg.Hashing.DeltaTMax),
			DeltaFMax:         uint32(cfg.Hashing.DeltaFMax),
			MaxPairsPerAnchor: cfg.Hashing.MaxPairsPerAnchor,
			FreqBits:          uint(cfg.Hashing.FreqBits),
			DeltaTimeBits:     uint(cfg.Hashing.DeltaTimeBits),
		},
	}
}

// chunkFramesFor picks a chunk size, in spectrogram frames, that keeps each
// chunk's in-memory spectrogram to a modest size regardless of how long the
// input recording is.
const chunkFramesFor = 2000

func openIndex(cfg config.Config) (index.Index, error) {
	idx, err := index.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := idx.Init(context.Background()); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

func runEnroll(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	title := fs.String("title", "", "recording name (defaults to the file's base name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: landmarkid enroll <file> [--title NAME]")
	}
	path := fs.Arg(0)
	name := *title
	if name == "" {
		name = filepath.Base(path)
	}

	samples, _, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}

	bar := progressbar.Default(-1, fmt.Sprintf("fingerprinting %s", name))
	fps := fingerprint.GenerateChunked(samples, paramsFrom(cfg), chunkFramesFor, func(done, total int) {
		bar.ChangeMax(total)
		bar.Set(done)
	})
	bar.Finish()

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	id, replaced, err := idx.Enroll(context.Background(), name, path, fps)
	if err != nil {
		return err
	}

	if replaced {
		fmt.Printf("%s recording %q (id=%d) with %d fingerprints\n", color.YellowString("re-enrolled"), name, id, len(fps))
	} else {
		fmt.Printf("%s recording %q (id=%d) with %d fingerprints\n", color.GreenString("enrolled"), name, id, len(fps))
	}
	return nil
}

func runQuery(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: landmarkid query <file>")
	}
	path := fs.Arg(0)

	samples, _, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}

	fps := fingerprint.Generate(samples, paramsFrom(cfg))
	logger.Debug("query fingerprints generated", "count", len(fps))

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	result, err := matcher.Match(context.Background(), idx, fps, cfg.Matching.MinScore)
	if err != nil {
		return err
	}
	if !result.Found {
		fmt.Println(color.RedString("no match"))
		return nil
	}

	rec, err := idx.GetRecording(context.Background(), result.RecordingID)
	if err != nil {
		return err
	}
	offsetSeconds := float64(result.OffsetFrames) * float64(cfg.Spectrogram.HopSize) / float64(cfg.Spectrogram.SampleRate)
	fmt.Printf("%s %q (id=%d, score=%d, offset_frames=%d, offset_seconds=%.3f)\n",
		color.GreenString("match:"), rec.Name, rec.ID, result.Score, result.OffsetFrames, offsetSeconds)
	return nil
}

func runList(cfg config.Config, args []string) error {
	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	recs, err := idx.ListRecordings(context.Background())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no recordings enrolled")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%4d  %-40s  %6d fingerprints  %s\n", r.ID, r.Name, r.FingerprintCount, r.EnrolledAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
