package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fetalscan/internal/config"
	"fetalscan/internal/document"
	"fetalscan/internal/lifecycle"
	"fetalscan/internal/logging"
	"fetalscan/internal/notifications"
	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// session bundles what a command needs to act on stored reports.
type session struct {
	cfg    *config.Config
	store  *store.Store
	ctrl   *lifecycle.Controller
	logger *slog.Logger
	notify notifications.Service
}

// withSession opens the store, loads the live draft, and runs fn.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	notifier := notifications.NewService(cfg)
	ctrl := lifecycle.New(lifecycle.Options{
		Repo:     st,
		Renderer: newRenderer(cfg, logger),
		Notifier: notifier,
		Logger:   logger,
		User:     cfg.User.Name,
		Clinic:   report.ClinicInfo(cfg.Clinic),
	})
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := ctrl.LoadInitialState(ctx); err != nil {
		return err
	}
	return fn(ctx, &session{cfg: cfg, store: st, ctrl: ctrl, logger: logger, notify: notifier})
}

func newRenderer(cfg *config.Config, logger *slog.Logger) *document.Renderer {
	return document.NewRenderer(document.Options{
		Title:            cfg.Report.Title,
		FooterContact:    cfg.Report.FooterContact,
		PlaceholderImage: cfg.Report.PlaceholderImage,
	}, logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
