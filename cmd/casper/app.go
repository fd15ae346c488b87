package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edeas123/aws-terraform-casper/internal/config"
	"github.com/edeas123/aws-terraform-casper/internal/telemetry"
	awsprovider "github.com/edeas123/aws-terraform-casper/providers/aws"
	"github.com/edeas123/aws-terraform-casper/storage"
)

// stateFlags are shared by build and scan.
type stateFlags struct {
	rootDir         string
	bucket          string
	stateFile       string
	stateBackend    string
	excludeDirs     []string
	excludeStateRes []string
}

func (f *stateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rootDir, "root-dir", "", "Root directory of the Terraform projects (default .)")
	cmd.Flags().StringVar(&f.bucket, "bucket-name", "", "S3 bucket holding the state inventory (env CASPER_BUCKET)")
	cmd.Flags().StringVar(&f.stateFile, "state-file", "", "Inventory file name, also the S3 object key (default terraform_state)")
	cmd.Flags().StringVar(&f.stateBackend, "state-backend", "", "Local inventory backend: file or bolt")
	cmd.Flags().StringSliceVar(&f.excludeDirs, "exclude-dirs", nil, "Directory names to skip")
	cmd.Flags().StringSliceVar(&f.excludeStateRes, "exclude-state-res", nil, "State resource groups to skip")
}

// loadConfig resolves the config file and lays flag values over it.
func loadConfig(g globalFlags, sf *stateFlags) (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Find(".")
	}
	if err != nil {
		return nil, err
	}

	applyGlobalFlags(cfg, g)
	if sf != nil {
		applyStateFlags(cfg, sf)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyGlobalFlags(cfg *config.Config, g globalFlags) {
	if g.awsProfile != "" {
		cfg.AWS.Profile = g.awsProfile
	}
	if g.region != "" {
		cfg.AWS.Region = g.region
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.metricsFile != "" {
		cfg.OTEL.MetricsFile = g.metricsFile
	}
	if g.otelEndpoint != "" {
		cfg.OTEL.Endpoint = g.otelEndpoint
	}
	if g.timeout > 0 {
		cfg.Terraform.Timeout = g.timeout
		cfg.Terraform.TimeoutStr = g.timeout.String()
	}
}

func applyStateFlags(cfg *config.Config, f *stateFlags) {
	if f.rootDir != "" {
		cfg.State.RootDir = f.rootDir
	}
	if f.bucket != "" {
		cfg.State.Bucket = f.bucket
	}
	if f.stateFile != "" {
		cfg.State.File = f.stateFile
	}
	if f.stateBackend != "" {
		cfg.State.Backend = f.stateBackend
	}
	if len(f.excludeDirs) > 0 {
		cfg.State.ExcludeDirs = cleanList(f.excludeDirs)
	}
	if len(f.excludeStateRes) > 0 {
		cfg.State.ExcludeGroups = cleanList(f.excludeStateRes)
	}
}

// cleanList trims entries and drops empty ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// app carries what every command needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	out     io.Writer
	tracing *telemetry.Provider
	metrics *telemetry.Metrics

	awsCfg    aws.Config
	awsLoaded bool
}

func newApp(ctx context.Context, cfg *config.Config, out io.Writer) (*app, error) {
	log, err := telemetry.NewLogger(cfg.Log.Level, nil)
	if err != nil {
		return nil, err
	}

	tracing, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	metrics, err := telemetry.NewMetrics(ctx, cfg.OTEL)
	if err != nil {
		_ = tracing.Shutdown(ctx)
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &app{cfg: cfg, log: log, out: out, tracing: tracing, metrics: metrics}, nil
}

// close writes the metrics textfile and flushes telemetry.
func (a *app) close() {
	ctx := context.Background()
	if err := a.metrics.WriteTextfile(a.cfg.OTEL.MetricsFile); err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.OTEL.MetricsFile).Msg("failed to write metrics file")
	}
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.log.Debug().Err(err).Msg("metrics shutdown")
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.log.Debug().Err(err).Msg("tracing shutdown")
	}
}

// awsConfig loads the AWS configuration once.
func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.awsLoaded {
		return a.awsCfg, nil
	}
	awsCfg, err := awsprovider.LoadConfig(ctx, awsprovider.Config{
		Profile: a.cfg.AWS.Profile,
		Region:  a.cfg.AWS.Region,
	})
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg, a.awsLoaded = awsCfg, true
	return awsCfg, nil
}

// store opens the inventory store; S3 is only reached when a bucket is set.
func (a *app) store(ctx context.Context) (storage.Store, error) {
	var client storage.S3API
	if a.cfg.State.Bucket != "" {
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		client = s3.NewFromConfig(awsCfg)
	}
	return storage.New(a.cfg.State, client, a.log)
}

// execute runs fn next to a signal handler. SIGINT or SIGTERM cancels the
// context handed to fn.
func execute(ctx context.Context, cfg *config.Config, out io.Writer, fn func(context.Context, *app) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer a.close()

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		return fn(ctx, a)
	}, func(error) {
		cancel()
	})

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		return fmt.Errorf("interrupted by %s", sig.Signal)
	}
	return err
}
