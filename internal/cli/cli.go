package cli

import (
	"flag"
	"fmt"
	"io"
)

// CLIArgs are the command-line arguments for a daemon run. Flags default to
// empty; the config file (or its defaults) fills whatever the flags leave
// unset.
type CLIArgs struct {
	// ConfigPath points at a YAML config file. Empty means defaults.
	ConfigPath string

	// ListenAddr overrides the configured HTTP listen address.
	ListenAddr string

	// DataDir overrides the configured storage directory.
	DataDir string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by
// passing arbitrary slices. The function is deterministic and does not read
// os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("vigil", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Path to a YAML config file")
		listenAddr = fs.String("listen", "", "HTTP listen address (overrides config)")
		dataDir    = fs.String("data-dir", "", "Storage data directory (overrides config)")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected positional arguments: %v", fs.Args())
	}

	return &CLIArgs{
		ConfigPath: *configPath,
		ListenAddr: *listenAddr,
		DataDir:    *dataDir,
		RawArgs:    args,
	}, nil
}
