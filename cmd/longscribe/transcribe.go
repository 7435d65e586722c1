package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/config"
	"github.com/longscribe/backend/internal/engine"
	"github.com/longscribe/backend/internal/logging"
	"github.com/longscribe/backend/internal/pipeline"
	"github.com/longscribe/backend/internal/progress"
	"github.com/longscribe/backend/internal/subtitle"
)

func newTranscribeCmd(cfgPath *string) *cobra.Command {
	var (
		language string
		strategy string
		diarize  bool
		format   string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe a single file from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := logging.Configure(cfg); err != nil {
				return err
			}

			st, err := chunk.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			dialect := subtitle.DialectSRT
			switch format {
			case "srt", "":
			case "vtt":
				dialect = subtitle.DialectVTT
			case "txt":
			default:
				return fmt.Errorf("unknown format %q (srt, vtt, txt)", format)
			}

			handle := engine.SharedHandle(cfg.Engine.URL)
			pipe := pipeline.New(pipeline.Config{
				Chunk: chunk.Params{
					Target:     cfg.Chunking.TargetSec,
					Overlap:    cfg.Chunking.OverlapSec,
					SnapRadius: cfg.Chunking.SnapRadiusSec,
				},
				Align:              cfg.Pipeline.Align,
				VADAggressiveness:  cfg.VAD.Aggressiveness,
				VADMinSpeech:       cfg.VAD.MinSpeechSec,
				VADMinSilence:      cfg.VAD.MinSilenceSec,
				SilenceMinDuration: cfg.Silence.MinDurationSec,
				SilenceNoiseDB:     cfg.Silence.NoiseDB,
			}, handle)

			reporter := progress.NewReporter("cli", "", func(jobID string, pct int, stage string) {
				fmt.Fprintf(os.Stderr, "\r%-14s %3d%%", stage, pct)
			})

			result, err := pipe.Run(cmd.Context(), args[0], pipeline.Options{
				Language: language,
				Strategy: st,
				Diarize:  diarize,
				Dialect:  dialect,
			}, reporter)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr)

			text := result.SegmentSubtitleText
			if format == "txt" {
				text = result.PlainText + "\n"
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s (%d chunks, %.1fs audio, %.1fs processing)\n",
					output, result.NumChunks, result.Duration, result.ProcessingTime)
				return nil
			}
			fmt.Print(text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language code (empty = auto-detect)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "auto", "Chunking strategy: auto|none|vad|time|silence")
	cmd.Flags().BoolVar(&diarize, "diarize", false, "Identify speakers")
	cmd.Flags().StringVarP(&format, "format", "f", "srt", "Output format: srt|vtt|txt")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}
