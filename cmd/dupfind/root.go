package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	dupfind "github.com/mattkeenan/dupfind/pkg"
	"github.com/mattkeenan/dupfind/pkg/report"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// scanFlags holds the command line of the scan command
type scanFlags struct {
	directory  string
	output     string
	format     string
	configPath string
	sets       []string
	excludes   []string
	algorithm  string
	prefixSize string
	minSize    string
	ignoreFile string
	workers    int
	verify     bool
	hardLinks  string
	verbose    int
	debug      string
	logFormat  string
}

// NewRootCommand creates the dupfind command, which scans a directory
func NewRootCommand(shutdownChan <-chan struct{}) *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "dupfind [DIR]",
		Short: "Find duplicate files below a directory",
		Long: `dupfind walks a directory tree and reports groups of byte-identical
regular files. Files are grouped by size, then by a hash of their first
bytes, and only the remaining candidates are hashed in full.

Symbolic links are never followed. The report is written to
duplicates.json unless --file or --format say otherwise; "-f -" writes to
standard output.

Configuration precedence: defaults, --config file, DUPFIND_* environment
variables, --set key:value, then explicit flags.`,
		Version:      Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if flags.directory != "" && flags.directory != args[0] {
					return fmt.Errorf("directory given twice: '%s' and '%s'", flags.directory, args[0])
				}
				flags.directory = args[0]
			}
			return runScan(cmd, flags, shutdownChan)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.directory, "directory", "d", "", "directory to scan")
	f.StringVarP(&flags.output, "file", "f", "", "output file, '-' for stdout (default duplicates.json)")
	f.StringVar(&flags.format, "format", "", "output format: json, yaml, msgpack, fdupes, sqlite, human")
	f.StringVar(&flags.configPath, "config", "", "ini configuration file (created with defaults if missing)")
	f.StringArrayVar(&flags.sets, "set", nil, "configuration override key:value (repeatable)")
	f.StringArrayVar(&flags.excludes, "exclude", nil, "regex of root-relative paths to skip (repeatable)")
	f.StringVarP(&flags.algorithm, "algorithm", "a", "", "hash algorithm: sha512, sha3-512, blake2b-512")
	f.StringVar(&flags.prefixSize, "prefix-size", "", "bytes hashed by the prefix stage, e.g. 4K")
	f.StringVar(&flags.minSize, "min-size", "", "ignore files smaller than this, e.g. 1M")
	f.StringVar(&flags.ignoreFile, "ignore-file", "", "file of regex ignore patterns, one per line")
	f.IntVarP(&flags.workers, "workers", "w", dupfind.DefaultWorkers, "concurrent hash workers")
	f.BoolVar(&flags.verify, "verify", false, "compare grouped files byte by byte before reporting")
	f.StringVar(&flags.hardLinks, "hardlinks", "", "hard link handling: include or collapse")
	f.CountVarP(&flags.verbose, "verbose", "v", "increase verbosity (repeatable)")
	f.StringVar(&flags.debug, "debug", "", "debug flags: walk,hash,group")
	f.StringVar(&flags.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(NewShowCommand())

	return cmd
}

// loadConfig layers the configuration sources in precedence order
func loadConfig(cmd *cobra.Command, flags *scanFlags) (*dupfind.Config, error) {
	cfg, err := dupfind.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(flags.sets); err != nil {
		return nil, err
	}

	explicit := []struct {
		flag, key, value string
	}{
		{"file", "file", flags.output},
		{"format", "format", flags.format},
		{"algorithm", "default", flags.algorithm},
		{"prefix-size", "prefix_size", flags.prefixSize},
		{"min-size", "min_size", flags.minSize},
		{"ignore-file", "ignore_file", flags.ignoreFile},
		{"workers", "hash_workers", strconv.Itoa(flags.workers)},
		{"verify", "bytewise", strconv.FormatBool(flags.verify)},
		{"hardlinks", "mode", flags.hardLinks},
		{"verbose", "level", strconv.Itoa(flags.verbose)},
		{"debug", "debug", flags.debug},
	}
	for _, e := range explicit {
		if !cmd.Flags().Changed(e.flag) {
			continue
		}
		if err := cfg.Set(e.key, e.value); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultOutputFor names the output file when only the format was chosen
func defaultOutputFor(format string) string {
	switch format {
	case report.FormatYAML:
		return "duplicates.yaml"
	case report.FormatMsgpack:
		return "duplicates.msgpack"
	case report.FormatFdupes:
		return "duplicates.txt"
	case report.FormatSQLite:
		return "duplicates.db"
	case report.FormatHuman:
		return report.Stdout
	default:
		return dupfind.DefaultOutputFile
	}
}

func runScan(cmd *cobra.Command, flags *scanFlags, shutdownChan <-chan struct{}) error {
	dupfind.SetLogOutput(cmd.ErrOrStderr())
	switch flags.logFormat {
	case "text", "json":
		dupfind.SetLogFormat(flags.logFormat)
	default:
		return fmt.Errorf("unsupported log format: %s (supported: text, json)", flags.logFormat)
	}

	if flags.directory == "" {
		return errors.New("no directory to scan")
	}

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return errors.Wrap(err, "configuration")
	}

	verbose := cfg.GetVerboseConfig()
	dupfind.SetVerboseLevel(verbose.Level)
	dupfind.SetDebugFlags(verbose.Debug)

	opts, err := cfg.ScanOptions()
	if err != nil {
		return err
	}
	opts.Excludes = flags.excludes

	output := cfg.GetOutputConfig()
	format := strings.ToLower(output.Format)
	path := output.File
	if path == dupfind.DefaultOutputFile && !cmd.Flags().Changed("file") {
		path = defaultOutputFor(format)
	}
	sink, err := report.NewSink(format, path)
	if err != nil {
		return err
	}
	sink.Out = cmd.OutOrStdout()

	scanner, err := dupfind.NewScanner(opts)
	if err != nil {
		return err
	}

	result, err := scanner.ScanTo(flags.directory, sink, shutdownChan)
	if err != nil {
		return err
	}
	if path != report.Stdout {
		dupfind.Logger().Infof("Report with %d duplicate groups written to %s", result.Stats.DuplicateGroups, path)
	}
	return nil
}
