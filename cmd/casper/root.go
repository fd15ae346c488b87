package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath   string
	awsProfile   string
	region       string
	logLevel     string
	metricsFile  string
	otelEndpoint string
	timeout      time.Duration
}

var (
	version = "0.1.0"
	globals globalFlags
	rootCmd = &cobra.Command{
		Use:   "casper",
		Short: "Find ghost resources in AWS",
		Long: `Casper - ghost resource finder

Casper walks a tree of Terraform projects, records every resource their
state tracks, and compares that inventory with what is actually running
in an AWS account. Anything live that no state knows about is a ghost.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", enhanceError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Casper {{.Version}} - ghost resource finder
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.configPath, "config", "", "Path to config file (default: .casper.yaml, env CASPER_CONFIG)")
	pf.StringVar(&globals.awsProfile, "aws-profile", "", "AWS profile used for Terraform and the AWS API")
	pf.StringVar(&globals.region, "region", "", "AWS region to scan")
	pf.StringVar(&globals.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&globals.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	pf.StringVar(&globals.otelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for traces and metrics")
	pf.DurationVar(&globals.timeout, "timeout", 0, "Per-command timeout for Terraform (default 300s)")
}
