package server

import (
	"context"
	"errors"
	"fakeagent/fakeagent/agents/core"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/controllers"
	"fakeagent/fakeagent/routes"
	"fakeagent/fakeagent/services/journal"
	"fakeagent/fakeagent/services/metrics"
	"fakeagent/fakeagent/sources/psql"
	"fakeagent/fakeagent/sources/psql/dao"
	"fakeagent/fakeagent/sources/storage"
	"fakeagent/fakeagent/utils/logging"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	HTTP *http.Server
	db   *psql.Database
}

// New wires the run handler and, when configured, the run journal.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	s := &Server{}
	var (
		runs        journal.RunStore
		transcripts journal.TranscriptStore
		archive     controllers.TranscriptReader
		runDAO      *dao.RunDAO
		threads     *controllers.ThreadController
	)

	if cfg.JournalEnabled() {
		db, err := psql.NewDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.db = db
		runDAO = dao.NewRunDAO(db.DB)
		runs = runDAO
	}
	if cfg.ArchiveEnabled() {
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			s.close()
			return nil, err
		}
		transcripts = minioClient
		archive = minioClient
	}
	if runDAO != nil {
		threads = controllers.NewThreadController(runDAO, archive)
	}

	m := metrics.New()
	runner := core.NewRunner(core.WithDelay(cfg.RunDelay))
	handler := routes.NewRouter(routes.Deps{
		Config:  cfg,
		Health:  controllers.NewHealthController(),
		Runs:    controllers.NewRunController(runner, m, journal.New(runs, transcripts)),
		Threads: threads,
		Metrics: m,
	})

	s.HTTP = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	defer s.close()

	serverErrors := make(chan error, 1)
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", s.HTTP.Addr))
		serverErrors <- s.HTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logging.AppLogger.Info("shutdown requested", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.HTTP.Shutdown(ctx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
		return s.HTTP.Close()
	}
	logging.AppLogger.Info("server shutdown complete")
	return nil
}
