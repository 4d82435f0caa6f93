package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/VidAI/internal/app"
	"github.com/dharsanguruparan/VidAI/internal/config"
	"github.com/dharsanguruparan/VidAI/internal/logger"
	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/model"
)

type askResult struct {
	Model string          `json:"model"`
	Media media.Reference `json:"media"`
	Reply string          `json:"reply"`
}

func newAskCmd() *cobra.Command {
	var (
		modelID string
		asJSON  bool
		timeout time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "ask <video> [prompt]",
		Short: "Upload a local video to Gemini and ask one question about it",
		Long: `ask uploads the video, waits until Gemini has processed it and prints the answer to the
prompt. Without a prompt the configured summary prompt is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			log := cliLogger(cmd.ErrOrStderr(), cfg, verbose)

			prompt := cfg.SummaryPrompt
			if len(args) == 2 {
				prompt = args[1]
			}
			if strings.TrimSpace(prompt) == "" {
				return errors.New("prompt is empty")
			}
			opt, ok := model.NewCatalog(cfg.Models, cfg.DefaultModel).Lookup(modelID)
			if !ok {
				return fmt.Errorf("model %q is not configured (see vidai models)", modelID)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			workflow, err := app.NewWorkflow(ctx, cfg, log)
			if err != nil {
				return err
			}

			res, err := ask(ctx, workflow, cfg.AllowedTypes, args[0], prompt, opt.ID, cmd.ErrOrStderr())
			if err != nil {
				return describe(err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			_, err = fmt.Fprintln(out, strings.TrimSpace(res.Reply))
			return err
		},
	}
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "Model id (defaults to the configured default model)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the media reference and reply as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits for the poll limit)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Log workflow steps to stderr")
	return cmd
}

// workflow is the part of media.Workflow that ask drives.
type workflow interface {
	UploadAndActivate(ctx context.Context, req media.UploadRequest, onProgress media.ProgressFunc) (media.Reference, error)
	Generate(ctx context.Context, req media.GenerationRequest) (string, error)
}

func ask(ctx context.Context, wf workflow, allowed []string, path, prompt, modelID string, status io.Writer) (*askResult, error) {
	contentType, err := detectVideo(path, allowed)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	line := newProgressLine(status, "Uploading "+name)
	ref, err := wf.UploadAndActivate(ctx, media.UploadRequest{
		Body:        f,
		ContentType: contentType,
		DisplayName: name,
	}, line.update)
	line.done()
	if err != nil {
		return nil, err
	}

	reply, err := wf.Generate(ctx, media.GenerationRequest{Media: ref, Prompt: prompt, Model: modelID})
	if err != nil {
		return nil, err
	}
	return &askResult{Model: modelID, Media: ref, Reply: reply}, nil
}

// detectVideo sniffs the file and checks it against the allowed types.
func detectVideo(path string, allowed []string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	for _, t := range allowed {
		if mt.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%s is %s, not a supported video type", filepath.Base(path), mt.String())
}

// describe prefixes workflow errors with their kind so scripts can match on
// it.
func describe(err error) error {
	if kind := media.KindOf(err); kind != media.KindUnclassified {
		return fmt.Errorf("[%s] %w", kind, err)
	}
	return err
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models sessions can talk to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), model.NewCatalog(cfg.Models, cfg.DefaultModel))
		},
	}
}

func printModels(w io.Writer, catalog *model.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEFAULT")
	for _, opt := range catalog.Options() {
		def := ""
		if opt.ID == catalog.Default() {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", opt.ID, opt.Label, def)
	}
	return tw.Flush()
}

func loadCLIConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(".env", ".env.local"); err != nil {
		return nil, err
	}
	return config.Load()
}

func cliLogger(w io.Writer, cfg *config.Config, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = logger.ParseLevel(cfg.LogLevel)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(level)
}

const barWidth = 24

// progressLine redraws a single status line with a carriage return.
type progressLine struct {
	w     io.Writer
	label string
	last  int
}

func newProgressLine(w io.Writer, label string) *progressLine {
	return &progressLine{w: w, label: label, last: -1}
}

func (p *progressLine) update(percent float64) {
	pct := int(math.Round(math.Max(0, math.Min(100, percent))))
	if pct == p.last {
		return
	}
	p.last = pct
	filled := pct * barWidth / 100
	fmt.Fprintf(p.w, "\r%s [%s%s] %3d%%", p.label,
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), pct)
}

func (p *progressLine) done() {
	if p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}
