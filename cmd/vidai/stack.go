package main

import (
	"github.com/spf13/cobra"
)

// composeArgs builds a docker compose invocation against composeFile.
func composeArgs(sub string, flags []string, services []string) []string {
	args := append([]string{"compose", "-f", composeFile, sub}, flags...)
	return append(args, services...)
}

// flagSwitch appends arg when on is set.
func flagSwitch(flags []string, on bool, arg string) []string {
	if on {
		return append(flags, arg)
	}
	return flags
}

func newStackCommands() []*cobra.Command {
	return []*cobra.Command{newBuildCmd(), newUpCmd(), newDownCmd(), newLogsCmd(), newPsCmd()}
}

func newBuildCmd() *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "build [service...]",
		Short: "Build the api and worker images",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := flagSwitch(nil, noCache, "--no-cache")
			return runCommand(cmd.Context(), "docker", composeArgs("build", flags, args)...)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable Docker build cache")
	return cmd
}

func newUpCmd() *cobra.Command {
	var detach, skipBuild bool
	cmd := &cobra.Command{
		Use:   "up [service...]",
		Short: "Start postgres, redis, minio, api and worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := flagSwitch(nil, !skipBuild, "--build")
			flags = flagSwitch(flags, detach, "-d")
			return runCommand(cmd.Context(), "docker", composeArgs("up", flags, args)...)
		},
	}
	cmd.Flags().BoolVarP(&detach, "detached", "d", true, "Run in the background")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Start without rebuilding images")
	return cmd
}

func newDownCmd() *cobra.Command {
	var volumes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := flagSwitch(nil, volumes, "-v")
			return runCommand(cmd.Context(), "docker", composeArgs("down", flags, nil)...)
		},
	}
	cmd.Flags().BoolVarP(&volumes, "volumes", "v", false, "Also delete database, redis and bucket volumes")
	return cmd
}

func newLogsCmd() *cobra.Command {
	var follow bool
	var tail string
	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Show service logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := flagSwitch(nil, follow, "--follow")
			if tail != "" {
				flags = append(flags, "--tail", tail)
			}
			return runCommand(cmd.Context(), "docker", composeArgs("logs", flags, args)...)
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "Stream logs continuously")
	cmd.Flags().StringVar(&tail, "tail", "", "Number of lines to show from the end of each log")
	return cmd
}

func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List stack containers and their health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), "docker", composeArgs("ps", nil, nil)...)
		},
	}
}
