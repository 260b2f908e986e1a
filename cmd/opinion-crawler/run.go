package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"elpais-crawler/internal/analysis"
	"elpais-crawler/internal/browser"
	"elpais-crawler/internal/config"
	"elpais-crawler/internal/extractor"
	"elpais-crawler/internal/media"
	"elpais-crawler/internal/pipeline"
	"elpais-crawler/internal/translate"
	"elpais-crawler/pkg/types"
)

type runFlags struct {
	limit          int
	mode           string
	target         string
	browser        string
	browserVersion string
	os             string
	osVersion      string
	device         string
	realMobile     string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	var flags *runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the opinion section, download images, translate headlines and report repeated words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			cfg.Normalise()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return execute(cmd.Context(), cfg)
		},
	}
	flags = bindRunFlags(cmd)
	return cmd
}

func bindRunFlags(cmd *cobra.Command) *runFlags {
	flags := &runFlags{}
	f := cmd.Flags()
	f.IntVar(&flags.limit, "limit", 0, "maximum number of articles to extract")
	f.StringVar(&flags.mode, "mode", "", "browser mode: local, remote or static")
	f.StringVar(&flags.target, "target", "", "target language for headline translation")
	f.StringVar(&flags.browser, "browser", "", "remote browser name")
	f.StringVar(&flags.browserVersion, "browser-version", "", "remote browser version")
	f.StringVar(&flags.os, "os", "", "remote operating system")
	f.StringVar(&flags.osVersion, "os-version", "", "remote operating system version")
	f.StringVar(&flags.device, "device", "", "remote device name")
	f.StringVar(&flags.realMobile, "real-mobile", "", "request a real mobile device (true/false)")
	return flags
}

// apply overlays the flags that were set on cfg. Naming a browser or device
// selects remote mode unless --mode says otherwise.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("limit") {
		cfg.Extraction.Limit = f.limit
	}
	if changed("target") {
		cfg.Translation.Target = f.target
	}

	remote := &cfg.Browser.Remote
	if changed("browser") {
		remote.Browser = f.browser
	}
	if changed("browser-version") {
		remote.BrowserVersion = f.browserVersion
	}
	if changed("os") {
		remote.OS = f.os
	}
	if changed("os-version") {
		remote.OSVersion = f.osVersion
	}
	if changed("device") {
		remote.Device = f.device
	}
	if changed("real-mobile") {
		remote.RealMobile = f.realMobile
	}

	switch {
	case changed("mode"):
		cfg.Browser.Mode = f.mode
	case changed("browser") || changed("device"):
		cfg.Browser.Mode = config.ModeRemote
	}
}

func execute(ctx context.Context, cfg *config.Config) error {
	logger, err := pipeline.BuildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	session, err := newSession(ctx, cfg, runID, logger)
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}

	translator, err := translate.FromConfig(cfg.Translation, logger)
	if err != nil {
		_ = session.Release(context.WithoutCancel(ctx), failed(err))
		return fmt.Errorf("build translator: %w", err)
	}
	images, err := media.FetcherFromConfig(cfg.Images, logger)
	if err != nil {
		_ = session.Release(context.WithoutCancel(ctx), failed(err))
		return fmt.Errorf("build image fetcher: %w", err)
	}
	logger.Info("run starting",
		"mode", cfg.Browser.Mode,
		"limit", cfg.Extraction.Limit,
		"target", cfg.Translation.Target,
		"translation_backends", translator.Backends(),
	)

	p, err := pipeline.New(pipeline.Deps{
		Session:    session,
		Extractor:  extractor.New(extractor.LocatorsFromConfig(cfg.Extraction), logger),
		Translator: translator,
		Images:     images,
		Analyzer:   analysis.NewAnalyzer(cfg.Analysis.MinWordLength, cfg.Analysis.MinOccurrences),
		Reporter:   pipeline.NewReporter(os.Stdout, cfg.Report.ContentWidth),
		Logger:     logger,
	}, pipeline.Options{
		RunID:  runID,
		Limit:  cfg.Extraction.Limit,
		Target: cfg.Translation.Target,
	})
	if err != nil {
		_ = session.Release(context.WithoutCancel(ctx), failed(err))
		return err
	}

	_, err = p.Run(ctx)
	return err
}

func newSession(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) (pipeline.Session, error) {
	if cfg.Browser.Mode == config.ModeStatic {
		return browser.NewStaticSession(cfg, nil, logger)
	}
	return browser.NewChromeSession(ctx, cfg, runID, logger)
}

func failed(err error) types.SessionStatus {
	return types.SessionStatus{Reason: err.Error()}
}
