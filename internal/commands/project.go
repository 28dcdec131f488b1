package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/report"
	"github.com/cleared-dev/tally/internal/store"
	"github.com/cleared-dev/tally/internal/store/csvstore"
	"github.com/cleared-dev/tally/internal/store/sqlstore"
)

// project is a loaded tally.yaml with its store opened. Relative paths in the
// config resolve against the config file's directory.
type project struct {
	root  string
	cfg   *config.Config
	log   zerolog.Logger
	store store.ReadWriter
}

func openProject(cmd *cobra.Command, configPath string) (*project, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(absPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", absPath, err)
	}

	p := &project{
		root: filepath.Dir(absPath),
		cfg:  cfg,
		log: logger.New(logger.Options{
			Level:  cfg.Log.Level,
			Pretty: cfg.Log.Pretty,
			Out:    cmd.ErrOrStderr(),
		}),
	}

	st, err := p.openStore()
	if err != nil {
		return nil, err
	}
	p.store = st
	return p, nil
}

func (p *project) openStore() (store.ReadWriter, error) {
	path := config.Resolve(p.root, p.cfg.Storage.Path)
	switch p.cfg.Storage.Driver {
	case config.DriverCSV:
		return csvstore.New(path, csvstore.Options{
			AutoCommit: p.cfg.Git.AutoCommit,
			Author:     gitops.Author{Name: p.cfg.Git.AuthorName, Email: p.cfg.Git.AuthorEmail},
			RepoDir:    p.root,
		}), nil
	default:
		st, err := sqlstore.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

func (p *project) importLogPath() string {
	return config.Resolve(p.root, p.cfg.Log.ImportLog)
}

func (p *project) reports() (*report.Service, error) {
	threshold, err := p.cfg.FraudThreshold()
	if err != nil {
		return nil, err
	}
	return report.NewService(p.store, report.Options{
		MonthlyDefault: p.cfg.Reports.MonthlyDefault,
		MonthlyMax:     p.cfg.Reports.MonthlyMax,
		TopMerchants:   p.cfg.Reports.TopMerchants,
		Biggest:        p.cfg.Reports.Biggest,
		FraudThreshold: threshold,
	}), nil
}

func (p *project) Close() error {
	return p.store.Close()
}
