package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edeas123/aws-terraform-casper/internal/command"
	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/state"
	"github.com/edeas123/aws-terraform-casper/storage"
	"github.com/edeas123/aws-terraform-casper/types"
)

var buildFlags stateFlags

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Record the resources tracked by Terraform state",
	Long: `Walk every Terraform project under the root directory, read each
supported resource out of its state and save the resulting inventory
locally or to S3.`,
	Example: `  casper build --root-dir ./infra
  casper build --bucket-name my-casper-bucket --exclude-dirs modules,examples
  casper build --state-backend bolt --state-file casper.db`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildFlags.register(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(globals, &buildFlags)
	if err != nil {
		return err
	}

	return execute(cmd.Context(), cfg, cmd.OutOrStdout(), func(ctx context.Context, a *app) error {
		store, err := a.store(ctx)
		if err != nil {
			return err
		}

		report, err := buildInventory(ctx, a, store)
		if err != nil {
			return err
		}

		printBuild(a.out, report, store.Location())
		return nil
	})
}

// buildInventory runs a build against store and records its metrics.
func buildInventory(ctx context.Context, a *app, store storage.Store) (*state.Report, error) {
	runner := command.New(command.Options{
		Timeout:     a.cfg.Terraform.Timeout,
		InitCommand: a.cfg.Terraform.InitCommand,
		Profile:     a.cfg.AWS.Profile,
	}, a.log)

	builder := state.NewBuilder(runner, registry.New(), store, state.Options{
		ListCommand: a.cfg.Terraform.ListCommand,
		ShowCommand: a.cfg.Terraform.ShowCommand,
	}, a.log)

	ex := types.NewExclusions(a.cfg.State.ExcludeDirs, a.cfg.State.ExcludeGroups)

	report, err := builder.BuildReport(ctx, a.cfg.State.RootDir, ex)
	if err != nil {
		return nil, fmt.Errorf("build failed: %w", err)
	}

	a.metrics.RecordBuild(ctx, report.Counters)
	return report, nil
}
