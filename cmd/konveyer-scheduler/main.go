// Konveyer scheduler — демон, создающий запуски по расписаниям.
//
// Лидерство между репликами разыгрывается через pg_try_advisory_lock;
// тики выполняет только лидер. HTTP-порт отдаёт /healthz и /metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Konveyer/mq"
	"github.com/shaiso/Konveyer/repo"
	"github.com/shaiso/Konveyer/scheduler"
	"github.com/shaiso/Konveyer/telemetry"
)

const schedLockKey int64 = 727272

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := telemetry.SetupLogger("konveyer-scheduler")

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("db connected")

	// RabbitMQ опционален: без него запуски объявляются только в БД.
	var announcer scheduler.Announcer
	conn, err := mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("mq unavailable, runs will not be announced", "error", err)
	} else {
		defer conn.Close()
		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("mq topology setup failed", "error", err)
			os.Exit(1)
		}
		announcer = mq.NewRunAnnouncer(mq.NewPublisher(conn, logger))
	}

	sched := scheduler.New(scheduler.Config{
		Schedules: repo.NewScheduleRepo(pool),
		Runs:      repo.NewRunRepo(pool),
		Pipelines: repo.NewPipelineRepo(pool),
		Announcer: announcer,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		// MQ был доступен на старте, но соединение потеряно —
		// объявления запусков не уходят, реплика не готова.
		if conn != nil && !conn.IsConnected() {
			http.Error(w, "mq disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("leader lock failed", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// Не лидер — пропускаем тик.
					continue
				}

				if err := sched.Tick(ctx); err != nil {
					logger.Error("scheduler tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	port := ":8081"
	if v := os.Getenv("KONVEYER_SCHED_PORT"); v != "" {
		port = ":" + v
	}
	logger.Info("listening", "port", port)
	if err := http.ListenAndServe(port, mux); err != nil {
		logger.Error("http server failed", "error", err)
		cancel()
	}
}
