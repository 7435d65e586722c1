package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "longscribe",
		Short: "Long-form audio transcription service",
		Long: `Longscribe splits long recordings into overlapping chunks, transcribes
them against a speech engine sidecar, and reassembles the results into
subtitles and plain text.

Key commands:
  serve        Run the HTTP API server and job worker
  transcribe   Transcribe a single file from the command line`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("longscribe v{{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML)")

	root.AddCommand(newServeCmd(cfgPath))
	root.AddCommand(newTranscribeCmd(cfgPath))

	return root.Execute()
}
