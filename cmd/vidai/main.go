// Command vidai is the developer CLI: it drives the docker-compose stack,
// runs the binaries from source and can ask Gemini about a local video
// without a server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var composeFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vidai: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidai",
		Short: "VidAI development CLI",
		Long: `vidai starts and inspects the docker-compose stack (postgres, redis, minio, api, worker),
runs the Go binaries from source, and talks to Gemini about a local video file.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&composeFile, "compose-file", "f", "docker-compose.yml", "Compose file to use for stack commands")
	cmd.AddCommand(newStackCommands()...)
	cmd.AddCommand(
		newTestCmd(),
		newRunCmd(),
		newAskCmd(),
		newModelsCmd(),
	)
	return cmd
}

func runCommand(ctx context.Context, name string, args ...string) error {
	c := exec.CommandContext(ctx, name, args...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return nil
}
