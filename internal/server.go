package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/gymplanner/internal/cache"
	"github.com/2beens/gymplanner/internal/config"
	"github.com/2beens/gymplanner/internal/gymplan/backend"
	"github.com/2beens/gymplanner/internal/gymplan/coordinator"
	"github.com/2beens/gymplanner/internal/gymplan/handler"
	"github.com/2beens/gymplanner/internal/middleware"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
	"github.com/2beens/gymplanner/pkg"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string
	bridgeToken       string

	config        *config.Config
	redisClient   *redis.Client
	exerciseCache cache.Cache
	backendClient *backend.Client
	coordinator   *coordinator.Coordinator
	unsubscribe   func()

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config *config.Config
	// BackendToken is the bearer token sent to the scheduling backend.
	BackendToken string
	// BridgeToken guards the local bridge, empty leaves it open.
	BridgeToken   string
	RedisPassword string
	VersionInfo   string
	// HTTPClient overrides the traced client used for the backend.
	HTTPClient *http.Client
}

func NewServer(ctx context.Context, params NewServerParams) (*Server, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("gymplanner", "bridge", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	var rdb *redis.Client
	if cfg.CacheBackend == config.CacheBackendRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: params.RedisPassword,
			DB:       0,
		})
		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	}

	otelShutdown, err := tracing.HoneycombSetup(cfg.HoneycombEnabled, "gymplanner", rdb)
	if err != nil {
		return nil, err
	}

	var exerciseCache cache.Cache
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		exerciseCache = cache.NewRedisCache(rdb)
	default:
		exerciseCache = cache.NewFreeCache(cfg.CacheSizeMB)
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.BackendTimeout.Duration,
		}
	}
	backendClient, err := backend.NewClient(backend.Params{
		BaseURL:    cfg.BackendURL,
		Token:      params.BackendToken,
		HTTPClient: httpClient,
		Cache:      exerciseCache,
		CacheTTL:   cfg.CacheTTL.Duration,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("new backend client: %w", err)
	}

	coord := coordinator.New(backendClient, coordinator.WithMetrics(metricsManager))
	unsubscribe := coord.Subscribe(func(ch coordinator.Change) {
		if ch.Cause == coordinator.CauseRollback {
			log.Warnf("[%s] rolled back %s of [%s]: %s", ch.Op, ch.Collection, ch.UserID, ch.Err)
			return
		}
		log.Tracef("[%s] %s of [%s] changed (%s)", ch.Op, ch.Collection, ch.UserID, ch.Cause)
	})

	return &Server{
		versionInfo:    params.VersionInfo,
		bridgeToken:    params.BridgeToken,
		config:         cfg,
		redisClient:    rdb,
		exerciseCache:  exerciseCache,
		backendClient:  backendClient,
		coordinator:    coord,
		unsubscribe:    unsubscribe,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

// InitialLoad reconciles the configured user, if any, so the first reads
// are served from a warm cache.
func (s *Server) InitialLoad(ctx context.Context) error {
	if s.config.UserID == "" {
		log.Debugln("no user_id configured, skipping initial load")
		return nil
	}
	if err := s.coordinator.Reconcile(ctx, s.config.UserID); err != nil {
		return fmt.Errorf("initial load of %s: %w", s.config.UserID, err)
	}
	log.Infof("initial load of [%s] done: %d activities", s.config.UserID, len(s.coordinator.Activities(s.config.UserID)))
	return nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("gymplanner-bridge"))

	r.HandleFunc("/", s.handleRoot).Methods("GET").Name("root")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET").Name("healthz")
	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	handler.NewHandler(s.coordinator, s.backendClient).SetupRoutes(r)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, "not found", http.StatusNotFound)
	})

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.NewAuthMiddlewareHandler(s.bridgeToken).AuthCheck())
	if s.redisClient != nil && s.config.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(redis_rate.NewLimiter(s.redisClient), s.config.RateLimitPerMin))
	}
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// Handler is the complete bridge handler, CORS included. CORS wraps the
// router so preflight requests are answered before route matching.
func (s *Server) Handler() http.Handler {
	return middleware.Cors(s.config.CorsOrigins)(s.routerSetup())
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.MetricsHost, strconv.Itoa(s.config.MetricsPort))
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("bridge, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	ctx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
		}
		log.Warnln("server shut down")
	}

	// no new requests can come in, let the in-flight mutations settle
	if err := s.coordinator.Close(ctx); err != nil {
		log.Errorf("coordinator close, %d mutations still pending: %s", s.coordinator.Pending(), err)
	}
	s.unsubscribe()

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown metrics http server: %s", err)
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "gymplanner bridge")
}

type healthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, healthResponse{Status: "ok", Pending: s.coordinator.Pending()}, http.StatusOK)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	version := s.versionInfo
	if version == "" {
		version = "dev"
	}
	pkg.WriteTextResponseOK(w, version)
}
