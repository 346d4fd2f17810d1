package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screener/internal/screening/dataset"
	"screener/internal/screening/engine"
	"screener/internal/screening/models"
	"screener/internal/screening/service"
	"screener/internal/screening/store"
	"screener/pkg/requestcontext"
)

type screenFlags struct {
	datasetPath   string
	engineConfig  string
	policies      []string
	bdsCategories []string
	lookThrough   bool
	maxDepth      int
	at            string
	compact       bool
}

func newScreenCmd() *cobra.Command {
	var f screenFlags
	cmd := &cobra.Command{
		Use:   "screen SYMBOL...",
		Short: "Screen symbols against a dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.datasetPath, "dataset", "d", "", "YAML dataset of instruments, evidence and holdings (required)")
	cmd.Flags().StringVar(&f.engineConfig, "engine-config", "", "YAML overlay for the engine rule tables")
	cmd.Flags().StringSliceVar(&f.policies, "policies", []string{"bds", "defense", "surveillance", "shariah"}, "policies to evaluate")
	cmd.Flags().StringSliceVar(&f.bdsCategories, "bds-categories", nil, "restrict BDS to these categories")
	cmd.Flags().BoolVar(&f.lookThrough, "lookthrough", false, "screen basket holdings")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", models.DefaultDepth, "look-through depth")
	cmd.Flags().StringVar(&f.at, "at", "", "evaluation time, RFC3339 or YYYY-MM-DD (default now)")
	cmd.Flags().BoolVar(&f.compact, "compact", false, "print single-line JSON")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func runScreen(cmd *cobra.Command, f screenFlags, symbols []string) error {
	ctx := cmd.Context()
	if f.at != "" {
		at, err := parseEvalTime(f.at)
		if err != nil {
			return err
		}
		ctx = requestcontext.WithTime(ctx, at)
	}

	req, err := buildRequest(f, symbols)
	if err != nil {
		return err
	}
	cfg, err := engine.LoadConfig(f.engineConfig)
	if err != nil {
		return err
	}
	data, err := dataset.ReadFile(f.datasetPath)
	if err != nil {
		return err
	}
	st := store.NewInMemoryStore()
	if _, err := data.Apply(ctx, st); err != nil {
		return err
	}

	svc, err := service.New(st,
		service.WithEngineConfig(cfg),
		service.WithLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))),
	)
	if err != nil {
		return err
	}
	resp, err := svc.Screen(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp, f.compact)
}

func buildRequest(f screenFlags, symbols []string) (models.ScreenRequest, error) {
	var filters models.Filters
	for _, name := range f.policies {
		p, err := models.ParsePolicy(name)
		if err != nil {
			return models.ScreenRequest{}, err
		}
		switch p {
		case models.PolicyBDS:
			filters.BDS.Enabled = true
		case models.PolicyDefense:
			filters.Defense = true
		case models.PolicySurveillance:
			filters.Surveillance = true
		case models.PolicyShariah:
			filters.Shariah = true
		}
	}
	for _, name := range f.bdsCategories {
		c, err := models.ParseBDSCategory(name)
		if err != nil {
			return models.ScreenRequest{}, err
		}
		filters.BDS.Categories = append(filters.BDS.Categories, c)
	}
	return models.ScreenRequest{
		Symbols: symbols,
		Filters: filters,
		Options: models.Options{LookThrough: f.lookThrough, MaxDepth: f.maxDepth},
	}, nil
}

func parseEvalTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: want RFC3339 or YYYY-MM-DD, got %q", v)
	}
	return t, nil
}

func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
