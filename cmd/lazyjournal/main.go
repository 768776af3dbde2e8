package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/app"
	"github.com/Joseda-hg/lazyjournal/internal/config"
	"github.com/Joseda-hg/lazyjournal/internal/db"
	"github.com/Joseda-hg/lazyjournal/internal/live"
	"github.com/Joseda-hg/lazyjournal/internal/logging"
	"github.com/Joseda-hg/lazyjournal/internal/ocr"
	"github.com/Joseda-hg/lazyjournal/internal/tui"
	"github.com/Joseda-hg/lazyjournal/internal/voice"
	"github.com/Joseda-hg/lazyjournal/internal/web"
)

var version = "dev"

var (
	configPathFlag string
	dbPathFlag     string
	webFlag        bool
	webOnlyFlag    bool
	portFlag       int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lazyjournal",
	Short: "Terminal journal of day, month and year records",
	Long: `lazyjournal keeps dated records with image attachments in a local sqlite
database. Without a subcommand it opens the terminal UI; --web also serves the
records over HTTP on localhost.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "sqlite db path")
	rootCmd.Flags().BoolVar(&webFlag, "web", false, "enable web server")
	rootCmd.Flags().BoolVar(&webOnlyFlag, "web-only", false, "run web server only")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "web server port")

	rootCmd.AddCommand(addCmd, listCmd, toggleCmd, rmCmd, ocrCmd)
}

// deps holds what every command needs once config is resolved.
type deps struct {
	cfg     config.Config
	logger  *zap.Logger
	sqlDB   *sql.DB
	store   *db.Store
	cleanup func()
}

func (r *deps) Close() {
	if r.sqlDB != nil {
		_ = r.sqlDB.Close()
	}
	if r.cleanup != nil {
		r.cleanup()
	}
}

// setup loads config (flags > env > file > defaults), opens the log file and
// the store. persist writes the resolved config back to disk.
func setup(persist bool) (*deps, error) {
	cfgPath, err := resolveConfigPath(configPathFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazyjournal.db")
	}
	if webFlag {
		cfg.WebEnabled = true
	}
	if portFlag != 0 {
		cfg.WebPort = portFlag
	}

	if persist {
		if err := config.Save(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	logger, cleanup, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, store, err := openStore(cfg.DBPath)
	if err != nil {
		cleanup()
		return nil, err
	}

	logger.Info("store opened", zap.String("path", cfg.DBPath))
	return &deps{cfg: cfg, logger: logger, sqlDB: sqlDB, store: store, cleanup: cleanup}, nil
}

func runRoot(cmd *cobra.Command, _ []string) error {
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if webOnlyFlag {
		rt.cfg.WebEnabled = true
	}

	var server *web.Server
	if rt.cfg.WebEnabled {
		server, err = web.NewServer(rt.store, rt.logger, &web.Config{Host: "localhost", Port: rt.cfg.WebPort})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Web server running at http://localhost:%d\n", rt.cfg.WebPort)
		defer shutdownServer(server, rt.logger)
	}

	if webOnlyFlag {
		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	}

	if server != nil {
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Error("web server error", zap.Error(err))
			}
		}()
	}

	query, err := startLiveQuery(ctx, rt)
	if err != nil {
		return err
	}

	application := app.New(rt.store, query,
		app.WithLogger(rt.logger),
		app.WithVoice(newCapture(rt)),
		app.WithScanner(newScanner(rt)),
	)

	return tui.Run(ctx, application, query, rt.logger)
}

// startLiveQuery loads the records once and keeps them current: store
// notifications cover this process, the file watcher covers other writers
// and the day ticker re-evaluates date-relative tabs after midnight.
func startLiveQuery(ctx context.Context, rt *deps) (*live.Query, error) {
	query := live.New(rt.store, rt.logger)
	if err := query.Refresh(ctx); err != nil {
		return nil, err
	}

	watcher, err := live.NewFileWatcher(rt.cfg.DBPath, rt.logger)
	if err != nil {
		rt.logger.Warn("database file watcher disabled", zap.Error(err))
	} else {
		watcher.Start(ctx)
		go func() {
			<-ctx.Done()
			watcher.Stop()
		}()
		query.Watch(watcher.Signals())
	}

	ticker, err := live.NewDayTicker(time.Local)
	if err != nil {
		rt.logger.Warn("midnight refresh disabled", zap.Error(err))
	} else {
		ticker.Start()
		go func() {
			<-ctx.Done()
			ticker.Stop()
		}()
		query.Watch(ticker.Signals())
		rt.logger.Debug("midnight refresh scheduled", zap.Time("next", ticker.Next()))
	}

	go func() {
		if err := query.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Error("live query stopped", zap.Error(err))
		}
	}()
	return query, nil
}

func newCapture(rt *deps) *voice.Capture {
	var recognizer voice.Recognizer
	if rt.cfg.Speech.Command != "" {
		recognizer = voice.CommandRecognizer{Command: rt.cfg.Speech.Command, Args: rt.cfg.Speech.Args}
	}
	return voice.New(recognizer, rt.cfg.Speech.Locale, rt.logger)
}

func newScanner(rt *deps) *ocr.Scanner {
	return ocr.NewScanner(ocr.TesseractEngine{Command: rt.cfg.OCR.Command}, rt.cfg.OCR.Languages, rt.logger)
}

func shutdownServer(server *web.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("web server shutdown", zap.Error(err))
	}
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dbPath string) (*sql.DB, *db.Store, error) {
	if err := config.EnsureDir(dbPath); err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, db.NewStore(sqlDB), nil
}
