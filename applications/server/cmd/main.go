package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/donmikel/partstore/applications/server"
	"github.com/donmikel/partstore/applications/server/adapters/inmemory"
	"github.com/donmikel/partstore/applications/server/config"
	"github.com/donmikel/partstore/applications/server/handlers/http"
	"github.com/donmikel/partstore/applications/server/interfaces"
	"github.com/donmikel/partstore/applications/server/services"
)

// exitCode is a process termination code.
type exitCode int

// Possible process termination codes are listed below.
const (
	// exitSuccess is code for successful program termination.
	exitSuccess exitCode = 0
	// exitFailure is code for unsuccessful program termination.
	exitFailure exitCode = 1
)

// Wait before terminating so that load balancers take the instance out of rotation
// before the listener goes away.
const preStopWait = 5 * time.Second

// Shutdown timeout for http servers.
const shutdownTimeout = 5 * time.Second

var (
	// version is the service version from git tag.
	version = ""
)

func main() {
	os.Exit(int(gracefulMain()))
}

// gracefulMain releases resources gracefully upon termination.
// When we call os.Exit defer statements do not run resulting in unclean process shutdown.
// nolint
func gracefulMain() exitCode {
	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "path to the config file")
	debugLog := fs.Bool("debug", false, "Log debug messages")
	v := fs.Bool("v", false, "Show version")

	err := fs.Parse(os.Args[1:])
	if err == flag.ErrHelp {
		return exitSuccess
	}
	if err != nil {
		logger.Log("msg", "parsing cli flags failed", "err", err)
		return exitFailure
	}

	if *v {
		if version == "" {
			level.Error(logger).Log("msg", "version not set")
		} else {
			level.Info(logger).Log("version", version)
		}

		return exitSuccess
	}

	if *debugLog {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	logger.Log("configPath", *configPath)

	cfg, err := config.Parse(*configPath)
	if err != nil {
		logger.Log("msg", "cannot parse service config", "err", err)
		return exitFailure
	}

	err = cfg.Validate()
	if err != nil {
		logger.Log("msg", "config validation failed", "err", err)
		return exitFailure
	}

	// It's nice to be able to see panics in Logs, hence we monitor for panics after
	// logger has been bootstrapped.
	defer monitorPanic(logger)
	ctx := context.Background()

	var metaStorage interfaces.UploadMetaStorage
	{
		metaStorage = inmemory.NewUploadMetaStorage()
	}

	var storageManager interfaces.StorageManager
	{
		storageManager = inmemory.NewStorageManager(logger)
	}

	for i := 0; i < cfg.Storage.Count; i++ {
		storageURL := fmt.Sprintf("storage_%d", i)
		st := inmemory.NewStorage(storageURL, int64(cfg.Storage.FreeSpace), logger)
		err = storageManager.AddStorage(ctx, storageURL, st)
		if err != nil {
			level.Error(logger).Log("msg", "error adding storage",
				"err", err,
			)

			return exitFailure
		}
	}

	var uploadService server.UploadService
	{
		uploadService = services.NewService(metaStorage, storageManager, services.Options{
			ChunksPerUpload:     cfg.Storage.ChunksPerUpload,
			MinChunkSizeInBytes: int64(cfg.Storage.MinChunkSize),
		}, logger)
	}

	hServer := http.NewHTTPServer(cfg, uploadService, logger)

	level.Info(logger).Log("msg", "starting server",
		"addr", cfg.API.HTTPAddr,
		"spill_threshold", cfg.Multipart.SpillThreshold,
		"max_body_size", cfg.Multipart.MaxBodySize,
		"storages", cfg.Storage.Count,
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sig:
			level.Info(logger).Log("msg", fmt.Sprintf("signal received (waiting %v before terminating): %v", preStopWait, s))
			time.Sleep(preStopWait)
			level.Info(logger).Log("msg", "terminating...")

			return fmt.Errorf("signal received: %s", s)
		}
	})

	group.Go(func() error {
		if err := hServer.ListenAndServe(); err != nil {
			return fmt.Errorf("listen and server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		level.Info(logger).Log("msg", "graceful shutdown of server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := hServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}

		return ctx.Err()
	})

	if err = group.Wait(); err != nil {
		level.Error(logger).Log("msg", fmt.Sprintf("actors stopped with err: %v", err))
		return exitFailure
	}

	level.Info(logger).Log("msg", "actors stopped without errors")

	return exitSuccess
}

// monitorPanic monitors panics and reports them somewhere (e.g. logs, ...).
func monitorPanic(logger log.Logger) {
	if rec := recover(); rec != nil {
		err := fmt.Sprintf("panic: %v \n stack trace: %s", rec, debug.Stack())
		level.Error(logger).Log("err", err)
		panic(err)
	}
}
