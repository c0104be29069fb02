// Package server wires the configured mode together and manages its
// lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	r "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chaintex/trade-processor/pkg/api"
	"github.com/chaintex/trade-processor/pkg/cache"
	"github.com/chaintex/trade-processor/pkg/chain"
	"github.com/chaintex/trade-processor/pkg/common"
	"github.com/chaintex/trade-processor/pkg/crawler"
	"github.com/chaintex/trade-processor/pkg/external"
	"github.com/chaintex/trade-processor/pkg/leaderelection"
	"github.com/chaintex/trade-processor/pkg/mongo"
	"github.com/chaintex/trade-processor/pkg/producer"
	"github.com/chaintex/trade-processor/pkg/redis"
	"github.com/chaintex/trade-processor/pkg/stats"
	"github.com/chaintex/trade-processor/pkg/store"
	"github.com/chaintex/trade-processor/pkg/tasks"
	"github.com/chaintex/trade-processor/pkg/worker"
)

// Server runs one mode of the trade processor.
type Server struct {
	log       logrus.FieldLogger
	config    *Config
	namespace string
	mode      Mode

	redis       *r.Client
	mongo       *mongo.Client
	chain       *chain.Client
	asynqClient *asynq.Client
	elector     *leaderelection.RedisElector
	worker      *worker.Worker
	scheduler   *gocron.Scheduler

	metricsServer *http.Server
	pprofServer   *http.Server
	healthServer  *http.Server
	apiServer     *http.Server
}

// NewServer creates a server for the given mode.
func NewServer(log logrus.FieldLogger, namespace string, config *Config, mode Mode) (*Server, error) {
	if err := config.Validate(mode); err != nil {
		return nil, err
	}

	redisClient, err := redis.New(config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	return &Server{
		log:       log.WithField("mode", string(mode)),
		config:    config,
		namespace: namespace,
		mode:      mode,
		redis:     redisClient,
	}, nil
}

// Start runs the server until the context is canceled or a signal arrives.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.New(ctx, s.log, s.config.Mongo)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}

	s.mongo = mongoClient

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return filterClosed(s.startMetrics())
	})

	if s.config.PProfAddr != nil {
		g.Go(func() error {
			return filterClosed(s.startPProf())
		})
	}

	if s.config.HealthCheckAddr != nil {
		g.Go(func() error {
			return filterClosed(s.startHealthCheck())
		})
	}

	switch s.mode {
	case ModeAPI:
		err = s.startAPI(g)
	case ModeProducer:
		err = s.startProducer(ctx, g)
	case ModeWorker:
		err = s.startWorker(ctx, g)
	case ModeCrawler:
		err = s.startCrawler(ctx, g)
	default:
		err = fmt.Errorf("unknown mode: %s", s.mode)
	}

	if err != nil {
		stop()

		if stopErr := s.stop(context.Background()); stopErr != nil {
			s.log.WithError(stopErr).Error("Failed to clean up after startup failure")
		}

		return err
	}

	g.Go(func() error {
		<-ctx.Done()

		return s.stop(context.Background())
	})

	return g.Wait()
}

func (s *Server) startAPI(g *errgroup.Group) error {
	responseCache := cache.New(s.log, s.redis, s.config.Redis.Prefix)
	ticker := external.NewTickerClient(s.log, s.config.External)

	handler := api.NewHandler(
		s.log,
		s.config.External.Address,
		store.NewTransactions(s.mongo),
		store.NewTradeStats(s.mongo),
		store.NewOverview(s.mongo),
		store.NewAccounts(s.mongo),
		ticker,
		responseCache,
	)

	router := mux.NewRouter()
	handler.Register(router)

	s.apiServer = &http.Server{
		Addr:              s.config.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g.Go(func() error {
		s.log.WithField("addr", s.config.APIAddr).Info("Starting API server")

		return filterClosed(s.apiServer.ListenAndServe())
	})

	return nil
}

func (s *Server) startProducer(ctx context.Context, g *errgroup.Group) error {
	opt := redis.AsynqOpt(s.config.Redis)
	s.asynqClient = asynq.NewClient(opt)

	var elector leaderelection.Elector

	if cfg := s.config.Producer.LeaderElection; cfg != nil && cfg.Enabled {
		redisElector, err := leaderelection.NewRedisElector(s.redis, s.log, s.config.Redis.Prefix+":leader:producer", cfg)
		if err != nil {
			return fmt.Errorf("failed to create leader elector: %w", err)
		}

		if err := redisElector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start leader elector: %w", err)
		}

		s.elector = redisElector
		elector = redisElector
	}

	prod := producer.NewProducer(
		s.log,
		&s.config.Producer,
		store.NewSettings(s.mongo),
		producer.NewQueueInspector(opt),
		s.asynqClient,
		common.NewClock(),
		elector,
	)

	g.Go(func() error {
		return prod.Run(ctx)
	})

	return nil
}

func (s *Server) startWorker(ctx context.Context, g *errgroup.Group) error {
	settings := store.NewSettings(s.mongo)
	transactions := store.NewTransactions(s.mongo)

	if err := settings.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure settings indexes: %w", err)
	}

	if err := transactions.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure transaction indexes: %w", err)
	}

	chainClient, err := chain.Dial(ctx, s.log, s.config.Chain)
	if err != nil {
		return fmt.Errorf("failed to dial chain: %w", err)
	}

	s.chain = chainClient

	synchronizer := stats.NewSynchronizer(
		s.log,
		&s.config.Sync,
		external.NewConstClient(s.log, s.config.External),
		external.NewScanClient(s.log, s.config.External),
		store.NewTradeStats(s.mongo),
		transactions,
		settings,
	)

	handlers := worker.NewHandlers(s.log, synchronizer, chainClient, transactions)
	s.worker = worker.New(s.log, &s.config.Worker, redis.AsynqOpt(s.config.Redis), handlers)

	if err := s.startQueueMetrics(redis.AsynqOpt(s.config.Redis)); err != nil {
		return fmt.Errorf("failed to start queue metrics: %w", err)
	}

	return s.worker.Start()
}

func (s *Server) startCrawler(ctx context.Context, g *errgroup.Group) error {
	settings := store.NewSettings(s.mongo)

	if err := settings.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure settings indexes: %w", err)
	}

	chainClient, err := chain.Dial(ctx, s.log, s.config.Chain)
	if err != nil {
		return fmt.Errorf("failed to dial chain: %w", err)
	}

	s.chain = chainClient
	s.asynqClient = asynq.NewClient(redis.AsynqOpt(s.config.Redis))

	crawl := crawler.NewCrawler(
		s.log,
		&s.config.Crawler,
		chainClient,
		s.asynqClient,
		settings,
		common.NewClock(),
	)

	g.Go(func() error {
		return crawl.Run(ctx)
	})

	return nil
}

// startQueueMetrics refreshes the queue depth gauges on a schedule.
func (s *Server) startQueueMetrics(opt asynq.RedisClientOpt) error {
	inspector := asynq.NewInspector(opt)

	s.scheduler = gocron.NewScheduler(time.UTC)

	if _, err := s.scheduler.Every("30s").Do(func() {
		for _, queue := range []string{tasks.QueueStats, tasks.QueueBlocks} {
			info, err := inspector.GetQueueInfo(queue)
			if err != nil {
				continue
			}

			common.QueueDepth.WithLabelValues(queue).Set(float64(info.Pending + info.Scheduled + info.Retry))
		}
	}); err != nil {
		return err
	}

	s.scheduler.StartAsync()

	return nil
}

func (s *Server) stop(ctx context.Context) error {
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.worker != nil {
		s.worker.Stop()
	}

	if s.elector != nil {
		if err := s.elector.Stop(cleanupCtx); err != nil {
			s.log.WithError(err).Error("Failed to stop leader elector")
		}
	}

	if s.apiServer != nil {
		if err := s.apiServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("Failed to shutdown API server")
		}
	}

	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.log.WithError(err).Error("Failed to close asynq client")
		}
	}

	if s.chain != nil {
		s.chain.Close()
	}

	if s.mongo != nil {
		if err := s.mongo.Close(cleanupCtx); err != nil {
			s.log.WithError(err).Error("Failed to close mongo connection")
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.WithError(err).Error("Failed to close redis connection")
		}
	}

	for _, srv := range []*http.Server{s.pprofServer, s.healthServer, s.metricsServer} {
		if srv == nil {
			continue
		}

		if err := srv.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("Failed to shutdown HTTP server")
		}
	}

	s.log.Info("Stopped gracefully")

	return nil
}

func (s *Server) startMetrics() error {
	s.log.WithField("addr", s.config.MetricsAddr).Info("Starting metrics server")

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	s.metricsServer = &http.Server{
		Addr:              s.config.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.metricsServer.ListenAndServe()
}

func (s *Server) startPProf() error {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.pprofServer.ListenAndServe()
}

func (s *Server) startHealthCheck() error {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	s.healthServer = &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	s.healthServer.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s.healthServer.ListenAndServe()
}

func filterClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
