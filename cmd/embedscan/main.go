// Command embedscan detects trailing data in uploaded files and remediates
// it on the hosting wiki.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/embedscan/internal/adapters/driven/classifier/file"
	"github.com/custodia-labs/embedscan/internal/adapters/driven/classifier/magic"
	configfile "github.com/custodia-labs/embedscan/internal/adapters/driven/config/file"
	"github.com/custodia-labs/embedscan/internal/adapters/driven/queue/redis"
	"github.com/custodia-labs/embedscan/internal/adapters/driven/queue/spool"
	"github.com/custodia-labs/embedscan/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/embedscan/internal/adapters/driven/wiki"
	"github.com/custodia-labs/embedscan/internal/adapters/driving/cli"
	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/core/services"
	"github.com/custodia-labs/embedscan/internal/decoders"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version, bootstrap)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap wires adapters into services. Adapters that need the network or
// disk (queue, audit database) are opened here and released by Close.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := configfile.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	logger.SetVerbose(opts.Verbose || settings.Logging.Verbose)

	detector := services.NewDetectionService(
		newClassifier(settings.Detection),
		newRegistry(settings),
		services.DetectionConfigFromSettings(settings.Detection),
	)

	store, err := sqlite.NewStore(settings.Audit.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	auditStore := store.AuditStore()

	queue, err := newQueue(settings.Queue)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}

	platform, err := newPlatform(settings, opts.DryRun)
	if err != nil {
		_ = queue.Close()
		_ = store.Close()
		return nil, err
	}

	history := services.NewHistoryCache(platform)
	executors := services.NewExecutors(platform, history,
		services.RetryPolicy{
			MaxAttempts: settings.Remediation.MaxAttempts,
			Delay:       settings.Remediation.RetryDelay,
		},
		services.ExecutorConfig{
			ProtectLevel:  settings.Remediation.ProtectLevel,
			ProtectExpiry: settings.Remediation.ProtectExpiry,
		},
	)
	remediator := services.NewRemediationService(platform, history, executors,
		services.RemediationConfigFromSettings(settings.Remediation))

	worker := services.NewWorkerService(queue, platform, history, detector, remediator, auditStore,
		services.WorkerConfigFromSettings(settings))

	return &cli.Services{
		Detector: detector,
		Worker:   worker,
		Audit:    services.NewAuditService(auditStore),
		Settings: settingsService,
		Close: func() error {
			return errors.Join(queue.Close(), store.Close())
		},
	}, nil
}

func newClassifier(s domain.DetectionSettings) driven.Classifier {
	if s.Classifier == domain.ClassifierMagic {
		return magic.New()
	}
	var opts []file.Option
	if s.FileBinary != "" {
		opts = append(opts, file.WithBinary(s.FileBinary))
	}
	return file.New(opts...)
}

func newRegistry(s *domain.Settings) *decoders.Registry {
	r := decoders.NewRegistry()
	decoders.RegisterDefaults(r, decoders.Config{
		ChunkSize:    s.Detection.ChunkSize,
		FFmpegBinary: s.Detection.FFmpegBinary,
		ScratchDir:   s.Worker.ScratchRoot,
	})
	return r
}

func newQueue(s domain.QueueSettings) (driven.EventQueue, error) {
	switch s.Backend {
	case domain.QueueBackendSpool:
		return spool.New(s.SpoolDir)
	case domain.QueueBackendRedis, "":
		return redis.New(redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			Key:      s.Key,
		})
	default:
		return nil, fmt.Errorf("%w: queue backend %q", domain.ErrInvalidInput, s.Backend)
	}
}

func newPlatform(s *domain.Settings, dryRun bool) (driven.Platform, error) {
	client, err := wiki.NewClient(wiki.Config{
		APIURL:            s.Wiki.APIURL,
		Username:          s.Wiki.Username,
		AccessToken:       s.Wiki.AccessToken,
		UserAgent:         s.Wiki.UserAgent,
		RequestsPerSecond: s.Wiki.RequestsPerSecond,
		TransientCodes:    s.Wiki.TransientCodes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wiki client: %w", err)
	}
	if dryRun || s.Worker.DryRun {
		logger.Warn("dry run: wiki writes are logged, not executed")
		return wiki.NewDryRun(client), nil
	}
	return client, nil
}
