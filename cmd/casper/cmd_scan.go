package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/policy"
	awsprovider "github.com/edeas123/aws-terraform-casper/providers/aws"
	"github.com/edeas123/aws-terraform-casper/scanner"
	"github.com/edeas123/aws-terraform-casper/storage"
	"github.com/edeas123/aws-terraform-casper/types"
)

var (
	scanState      stateFlags
	scanServices   []string
	scanExcludeRes []string
	scanRebuild    bool
	scanDetailed   bool
	scanOutputFile string
	scanPolicyPath string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find live AWS resources missing from Terraform state",
	Long: `Compare the live resources of each service with the inventory saved
by the last build. Live resources no state tracks are reported as ghosts.`,
	Example: `  casper scan                                   # Scan every supported service
  casper scan --services ec2,s3                  # Only EC2 and S3
  casper scan --rebuild --bucket-name my-bucket  # Build first, then scan
  casper scan --detailed --output-file ghosts.json
  casper scan --policy ignore.rego               # Drop ghosts a Rego rule accepts`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanState.register(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanServices, "services", nil, "Services to scan (default: all supported)")
	scanCmd.Flags().StringSliceVar(&scanExcludeRes, "exclude-cloud-res", nil, "Live resource ids to never report")
	scanCmd.Flags().BoolVar(&scanRebuild, "rebuild", false, "Build the state inventory before scanning")
	scanCmd.Flags().BoolVar(&scanDetailed, "detailed", false, "Include each ghost's AWS description in the result")
	scanCmd.Flags().StringVar(&scanOutputFile, "output-file", "", "Write the full result as JSON to this file")
	scanCmd.Flags().StringVar(&scanPolicyPath, "policy", "", "Rego module whose data.casper.ignore rule drops ghosts")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(globals, &scanState)
	if err != nil {
		return err
	}
	if len(scanServices) > 0 {
		cfg.Scan.Services = cleanList(scanServices)
	}
	if len(scanExcludeRes) > 0 {
		cfg.Scan.ExcludeResources = cleanList(scanExcludeRes)
	}
	if scanPolicyPath != "" {
		cfg.Scan.Policy = scanPolicyPath
	}

	return execute(cmd.Context(), cfg, cmd.OutOrStdout(), func(ctx context.Context, a *app) error {
		store, err := a.store(ctx)
		if err != nil {
			return err
		}

		if scanRebuild {
			report, err := buildInventory(ctx, a, store)
			if err != nil {
				return err
			}
			printBuild(a.out, report, store.Location())
		}

		inv, err := store.Load(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrStateNotFound) {
				return fmt.Errorf("%w (run 'casper build' or pass --rebuild)", err)
			}
			return err
		}

		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return err
		}

		var rules scanner.Policy
		if a.cfg.Scan.Policy != "" {
			engine, err := policy.Load(ctx, a.cfg.Scan.Policy)
			if err != nil {
				return err
			}
			rules = engine
		}

		s := scanner.New(scanner.Config{
			Fetcher:   awsprovider.NewFromConfig(awsCfg, a.log),
			Registry:  registry.New(),
			Inventory: inv,
			Excluded:  a.cfg.Scan.ExcludeResources,
			Policy:    rules,
		}, a.log)

		services := selectServices(a.cfg.Scan.Services, a.log)
		results, err := scanServicesWith(ctx, a, s, services, scanDetailed)
		if err != nil {
			return err
		}

		printScan(a.out, services, results)

		if scanOutputFile != "" {
			path, err := writeResults(scanOutputFile, results)
			if err != nil {
				return err
			}
			printResultPath(a.out, path)
		}
		return nil
	})
}

// selectServices drops unsupported names. No names means every service.
func selectServices(requested []string, log zerolog.Logger) []string {
	if len(requested) == 0 {
		return scanner.Services()
	}

	seen := make(map[string]bool, len(requested))
	services := make([]string, 0, len(requested))
	dropped := make([]string, 0)
	for _, name := range requested {
		if !scanner.Supported(name) {
			dropped = append(dropped, name)
			continue
		}
		if !seen[name] {
			seen[name] = true
			services = append(services, name)
		}
	}

	if len(dropped) > 0 {
		log.Warn().Strs("services", dropped).Msg("ignoring one or more unsupported services")
	}
	if len(services) == 0 {
		log.Warn().Msg("no supported service specified")
	}
	return services
}

// scanServicesWith scans each service in order and records its metrics.
func scanServicesWith(ctx context.Context, a *app, s *scanner.Scanner, services []string, detailed bool) (map[string]types.ServiceResult, error) {
	results := make(map[string]types.ServiceResult, len(services))
	for _, name := range services {
		start := time.Now()
		result, err := s.Scan(ctx, name, detailed)
		a.metrics.RecordScanDuration(ctx, name, time.Since(start))
		if err != nil {
			return nil, err
		}

		a.metrics.RecordGhosts(ctx, name, result)
		results[name] = result
	}
	return results, nil
}
