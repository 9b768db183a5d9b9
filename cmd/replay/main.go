package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inamate/composer/internal/config"
	"github.com/inamate/composer/internal/document"
	"github.com/inamate/composer/internal/engine"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		docPath     string
		sessionPath string
		grid        float64
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:          "replay",
		Short:        "Replay a recorded pointer session against a document",
		Long:         `replay feeds a JSON list of pointer, key and frame events through the editing engine and prints the transforms each gesture committed.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts := cfg.Engine
			if grid > 0 {
				opts.GridSize = grid
			}

			doc := document.NewSampleDocument(document.SampleDocumentID)
			if docPath != "" {
				if doc, err = document.ReadFile(docPath); err != nil {
					return err
				}
			}
			session, err := readSession(sessionPath)
			if err != nil {
				return err
			}

			report, err := Replay(engine.NewEngine(opts, logger), doc, session)
			if err != nil {
				return err
			}
			logger.Debug("replay finished", "commits", len(report.Commits), "cancels", report.Cancels)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&docPath, "document", "", "document JSON file (default: the sample document)")
	cmd.Flags().StringVar(&sessionPath, "session", "", "recorded session JSON file")
	cmd.Flags().Float64Var(&grid, "grid", 0, "override the snap grid size")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func readSession(path string) (Session, error) {
	var s Session
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}
