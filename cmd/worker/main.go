package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/cipherdrive/internal/logging"
	"github.com/dmitrijs2005/cipherdrive/internal/server/config"
	"github.com/dmitrijs2005/cipherdrive/internal/server/queue"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cipherdrive/internal/worker"
)

func main() {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Printf("db init error: %v", err)
		return
	}
	defer db.Close()

	rq := queue.NewRedisQueue(cfg.RedisURL, cfg.AnalysisQueue)
	defer rq.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	rm := repomanager.NewPostgresRepositoryManager()
	worker.NewAnalyzer(db, rm, rq, logger).Run(ctx)

}
