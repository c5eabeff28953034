package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal"
	"github.com/2beens/gymplanner/internal/config"
	"github.com/2beens/gymplanner/internal/logging"
)

const initialLoadTimeout = 30 * time.Second

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	}

	flushSentry := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "gymplanner-bridge",
		Release:          versionInfo,
	})
	defer flushSentry()

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using backend: [%s]", cfg.BackendURL)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)
	if versionInfo != "" {
		log.Tracef("running version: %s", versionInfo)
	}

	backendToken := os.Getenv("GYMPLANNER_BACKEND_TOKEN")
	if backendToken == "" {
		log.Errorf("backend token not set, use GYMPLANNER_BACKEND_TOKEN env var to set it")
	}

	bridgeToken := os.Getenv("GYMPLANNER_BRIDGE_TOKEN")
	if bridgeToken == "" {
		log.Warnln("bridge token not set, the local API is open. use GYMPLANNER_BRIDGE_TOKEN")
	}

	redisPassword := os.Getenv("GYMPLANNER_REDIS_PASS")
	if cfg.CacheBackend == config.CacheBackendRedis && redisPassword == "" {
		log.Errorf("redis password not set. use GYMPLANNER_REDIS_PASS")
	}

	if cfg.HoneycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := internal.NewServer(ctx, internal.NewServerParams{
		Config:        cfg,
		BackendToken:  backendToken,
		BridgeToken:   bridgeToken,
		RedisPassword: redisPassword,
		VersionInfo:   versionInfo,
	})
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, initialLoadTimeout)
	if err := server.InitialLoad(loadCtx); err != nil {
		// the bridge still starts, a later reconcile can fill the cache
		log.Errorf("initial load: %s", err)
	}
	loadCancel()

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash assumes the binary runs from the project root.
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}
