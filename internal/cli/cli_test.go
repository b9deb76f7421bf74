package cli

import (
	"testing"
)

func TestParseArgs_AllFlags(t *testing.T) {
	t.Parallel()

	args, err := ParseArgs([]string{"-config", "vigil.yaml", "-listen", ":9000", "-data-dir", "/srv/data"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.ConfigPath != "vigil.yaml" {
		t.Errorf("config path: got %q", args.ConfigPath)
	}
	if args.ListenAddr != ":9000" {
		t.Errorf("listen addr: got %q", args.ListenAddr)
	}
	if args.DataDir != "/srv/data" {
		t.Errorf("data dir: got %q", args.DataDir)
	}
}

func TestParseArgs_NoFlags(t *testing.T) {
	t.Parallel()

	args, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.ConfigPath != "" || args.ListenAddr != "" || args.DataDir != "" {
		t.Errorf("expected empty defaults, got %+v", args)
	}
}

func TestParseArgs_RejectsUnknownFlag(t *testing.T) {
	t.Parallel()

	if _, err := ParseArgs([]string{"-bogus"}); err == nil {
		t.Error("expected an error for an unknown flag")
	}
}

func TestParseArgs_RejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	if _, err := ParseArgs([]string{"leftover"}); err == nil {
		t.Error("expected an error for positional arguments")
	}
}
