package main

import (
	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	var race, cover, short bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		Long:  "Run Go tests. Integration tests start containers through testcontainers and skip when Docker is unavailable; pass --short to skip them explicitly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}
			goArgs := flagSwitch([]string{"test"}, race, "-race")
			goArgs = flagSwitch(goArgs, cover, "-cover")
			goArgs = flagSwitch(goArgs, short, "-short")
			return runCommand(cmd.Context(), "go", append(goArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable the race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Report coverage")
	cmd.Flags().BoolVar(&short, "short", false, "Skip container-backed integration tests")
	return cmd
}

var binaries = []struct{ name, path, short string }{
	{"server", "./cmd/server", "Standalone server: in-memory sessions, local disk, in-process workers"},
	{"api", "./cmd/api", "Distributed HTTP API backed by postgres, minio and redis"},
	{"worker", "./cmd/worker", "Distributed activation worker consuming asynq tasks"},
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a VidAI binary from source",
	}
	for _, b := range binaries {
		path := b.path
		cmd.AddCommand(&cobra.Command{
			Use:   b.name,
			Short: b.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommand(cmd.Context(), "go", append([]string{"run", path}, args...)...)
			},
		})
	}
	return cmd
}
