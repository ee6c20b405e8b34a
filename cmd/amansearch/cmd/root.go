// Package cmd provides the CLI commands for amansearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amansearch/internal/catalog"
	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/engine"
	"github.com/Aman-CERP/amansearch/internal/logging"
	"github.com/Aman-CERP/amansearch/internal/profiling"
	"github.com/Aman-CERP/amansearch/pkg/index"
	"github.com/Aman-CERP/amansearch/pkg/provider"
	"github.com/Aman-CERP/amansearch/pkg/version"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	debug   bool
	root    string
	profile profiling.Config

	cfg            *config.Config
	logger         *slog.Logger
	loggingCleanup func()
	profiler       *profiling.Profiler
}

// NewRootCmd creates the root command for the amansearch CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "amansearch",
		Short: "Typed full-text indexes on the command line",
		Long: `amansearch stores typed documents in named full-text indexes and
queries them with term, phrase, range and fuzzy clauses.

Each index lives in its own directory under the index root
(~/.amansearch/indexes by default, see 'amansearch config show').`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("amansearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log at debug level and copy logs to stderr")
	cmd.PersistentFlags().StringVar(&a.root, "root", "", "Index root directory (overrides config)")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.start
	cmd.PersistentPostRunE = a.stop

	cmd.AddCommand(newInsertCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newCountCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newInfoCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start loads configuration and sets up logging.
func (a *app) start(_ *cobra.Command, _ []string) error {
	projectDir, err := config.FindProjectRoot(".")
	if err != nil {
		projectDir, _ = os.Getwd()
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return err
	}
	if a.root != "" {
		cfg.Index.Root = a.root
	}
	a.cfg = cfg

	logCfg := logging.Config{
		Level:         cfg.LogLevel(),
		FilePath:      logging.DefaultLogPath(),
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: a.debug,
	}
	if a.debug {
		logCfg.Level = slog.LevelDebug
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// File logging is optional; keep going without it.
		logCfg.FilePath = ""
		if logger, cleanup, err = logging.Setup(logCfg); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
	}
	a.logger = logger
	a.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if a.profile.Enabled() {
		p, err := profiling.Start(a.profile)
		if err != nil {
			return err
		}
		a.profiler = p
	}

	logger.Debug("cli_started",
		slog.String("version", version.Version),
		slog.String("index_root", cfg.Index.Root))
	return nil
}

func (a *app) stop(_ *cobra.Command, _ []string) error {
	err := a.profiler.Stop()
	if err != nil {
		slog.Warn("profile_write_failed", slog.String("error", err.Error()))
	}
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
	return err
}

// session is an open provider plus its catalog.
type session struct {
	provider *provider.Provider
	catalog  *catalog.Catalog
}

func (s *session) Close() error {
	err := s.provider.Close()
	if cerr := s.catalog.Close(); err == nil {
		err = cerr
	}
	return err
}

// open builds a provider over the configured index root.
func (a *app) open() (*session, error) {
	sel, err := a.cfg.Selector()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(filepath.Join(a.cfg.Index.Root, catalog.FileName))
	if err != nil {
		return nil, err
	}

	resolver := provider.FileSystem{
		Root: a.cfg.Index.Root,
		Options: []engine.Option{
			engine.WithLogger(a.logger),
			engine.WithLockRetry(a.cfg.LockRetry()),
		},
	}
	p := provider.New(resolver, sel,
		provider.WithLogger(a.logger),
		provider.WithCatalog(cat))
	return &session{provider: p, catalog: cat}, nil
}

// withIndex opens the named index for the duration of fn.
func (a *app) withIndex(name string, fn func(*index.Manager) error) (err error) {
	s, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	m, err := s.provider.Get(name)
	if err != nil {
		return err
	}
	return fn(m)
}
