// Package main is the entry point for the mml2midi CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/james-see/mml2midi/pkg/api"
	"github.com/james-see/mml2midi/pkg/config"
	"github.com/james-see/mml2midi/pkg/converter"
	"github.com/james-see/mml2midi/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile string
	outputFile string
	verbose    bool
	padTracks  bool
	serverPort int

	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mml2midi",
	Short: "Convert between Mabinogi MML and MIDI",
	Long: `mml2midi converts Mabinogi-style MML scores (MML@melody,chord1,chord2;)
to Standard MIDI Files and back.

Tempo changes are shared by every track of a score and are written into the
first track of the MML output.

Examples:
  mml2midi convert song.mml -o song.mid
  mml2midi mml2midi song.mml
  mml2midi midi2mml song.mid -o song.mml --pad
  mml2midi fmt song.mml
  mml2midi inspect song.mid
  mml2midi tui
  mml2midi serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Automatically detects input format and converts to the output format based on file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var mml2midiCmd = &cobra.Command{
	Use:   "mml2midi <input.mml>",
	Short: "Convert MML to MIDI",
	Args:  cobra.ExactArgs(1),
	RunE:  runMMLToMIDI,
}

var midi2mmlCmd = &cobra.Command{
	Use:   "midi2mml <input.mid>",
	Short: "Convert MIDI to MML",
	Args:  cobra.ExactArgs(1),
	RunE:  runMIDIToMML,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt <input.mml>",
	Short: "Rewrite MML in canonical form",
	Long: `Parses an MML score and writes it back with minimal note lengths, relative
octave moves and volume changes only where the volume changes. Prints to
stdout unless -o is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "List the tracks, notes and tempo changes of a score",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVar(&padTracks, "pad", false, "Pad every MML track to the score length")

	// Convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	mml2midiCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	midi2mmlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mml file path")
	fmtCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mml file path")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config, 8080)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(mml2midiCmd)
	rootCmd.AddCommand(midi2mmlCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads the config and builds the logger; flags override the file
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if cmd.Flags().Changed("pad") {
		cfg.Convert.PadTracks = padTracks
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger, err = cfg.NewLogger(os.Stderr)
	return err
}

func newConverter() *converter.Converter {
	return converter.New(
		converter.WithLogger(logger),
		converter.WithPadTracks(cfg.Convert.PadTracks),
	)
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	logger.Info("converting", "input", input, "output", outputFile)
	if err := newConverter().ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runMMLToMIDI(cmd *cobra.Command, args []string) error {
	return convertWith(args[0], ".mid", newConverter().MMLToMIDI)
}

func runMIDIToMML(cmd *cobra.Command, args []string) error {
	return convertWith(args[0], ".mml", newConverter().MIDIToMML)
}

func convertWith(input, ext string, convert func([]byte) ([]byte, error)) error {
	output := getOutputPath(input, ext)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	result, err := convert(data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func runFmt(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	result, err := newConverter().FormatMML(data)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Println(string(result))
		return nil
	}
	return os.WriteFile(outputFile, append(result, '\n'), 0644)
}

func runInspect(cmd *cobra.Command, args []string) error {
	input := args[0]

	var score *converter.Score
	var err error
	if converter.DetectFormat(input) == converter.FormatMIDI {
		score, err = converter.NewMIDIConverter(logger).ParseMIDIFile(input)
	} else {
		score, err = converter.ParseScoreFile(input)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Score: %s\n", filepath.Base(input))
	fmt.Fprintf(out, "Length: %d ticks\n", score.Length())
	for ev := range score.Tempo.All() {
		fmt.Fprintf(out, "  %s\n", ev)
	}
	for i, t := range score.Tracks {
		fmt.Fprintf(out, "Track %d (%d notes, %d ticks)\n", i+1, len(t.Notes()), t.Length())
		for _, n := range t.Notes() {
			fmt.Fprintf(out, "  %s\n", n)
		}
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(newConverter())
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)
	return api.StartServer(cfg, logger)
}
