// Package state builds the inventory of resources tracked by Terraform state
// across a tree of project directories.
package state

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/edeas123/aws-terraform-casper/internal/command"
	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/internal/telemetry"
	"github.com/edeas123/aws-terraform-casper/storage"
	"github.com/edeas123/aws-terraform-casper/types"
)

// Runner executes Terraform commands in a project directory.
type Runner interface {
	Run(ctx context.Context, dir, command string) command.Result
	RunArgs(ctx context.Context, dir string, args ...string) command.Result
}

// Options holds the commands the builder runs.
type Options struct {
	ListCommand string
	ShowCommand string
}

// Project describes one Terraform project directory visited by a build.
type Project struct {
	Dir       string `json:"dir"`
	Backend   string `json:"backend"`
	Listed    bool   `json:"listed"`
	Resources int    `json:"resources"`
}

// Report is the full outcome of a build.
type Report struct {
	Counters  types.BuildCounters
	Projects  []Project
	Inventory types.Inventory
}

// Builder walks project directories and records the identifiers of every
// supported resource found in their state.
type Builder struct {
	runner   Runner
	registry *registry.Registry
	store    storage.Store
	list     string
	show     []string
	log      zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(runner Runner, reg *registry.Registry, store storage.Store, opts Options, log zerolog.Logger) *Builder {
	list := opts.ListCommand
	if list == "" {
		list = "terraform state list"
	}
	show := strings.Fields(opts.ShowCommand)
	if len(show) == 0 {
		show = []string{"terraform", "state", "show", "-no-color"}
	}

	return &Builder{
		runner:   runner,
		registry: reg,
		store:    store,
		list:     list,
		show:     show,
		log:      log.With().Str("component", "state").Logger(),
	}
}

// Build walks root, saves the resulting inventory and returns the counters.
func (b *Builder) Build(ctx context.Context, root string, ex types.Exclusions) (types.BuildCounters, error) {
	report, err := b.BuildReport(ctx, root, ex)
	if err != nil {
		return types.BuildCounters{}, err
	}
	return report.Counters, nil
}

// BuildReport is Build with per-project detail.
func (b *Builder) BuildReport(ctx context.Context, root string, ex types.Exclusions) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "state.build")
	defer span.End()

	run := &buildRun{
		Builder: b,
		ex:      ex.Clone(),
		report:  &Report{Inventory: types.Inventory{}},
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			b.log.Warn().Ctx(ctx).Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && run.ex.Dirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := isProject(path)
		if err != nil {
			b.log.Warn().Ctx(ctx).Err(err).Str("path", path).Msg("skipping unreadable directory")
			return nil
		}
		if ok {
			run.project(ctx, path)
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	if err := b.store.Save(ctx, run.report.Inventory); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("save state: %w", err)
	}

	c := run.report.Counters
	span.SetAttributes(
		attribute.Int("casper.states", c.State),
		attribute.Int("casper.resources", c.Resource),
		attribute.Int("casper.resource_groups", c.ResourceGroup),
	)
	b.log.Info().Ctx(ctx).
		Int("states", c.State).
		Int("resources", c.Resource).
		Int("resource_groups", c.ResourceGroup).
		Str("location", b.store.Location()).
		Msg("state saved")

	return run.report, nil
}

// buildRun holds the mutable state of a single build.
type buildRun struct {
	*Builder
	ex     types.Exclusions
	report *Report
}

func (r *buildRun) project(ctx context.Context, dir string) {
	ctx, span := telemetry.StartSpan(ctx, "state.project", attribute.String("casper.dir", dir))
	defer span.End()

	backend, err := DetectBackend(dir)
	if err != nil {
		r.log.Debug().Ctx(ctx).Err(err).Str("dir", dir).Msg("terraform configuration not fully parsed")
	}
	r.log.Debug().Ctx(ctx).Str("dir", dir).Str("backend", backend).Msg("in project")

	p := Project{Dir: dir, Backend: backend}
	defer func() { r.report.Projects = append(r.report.Projects, p) }()

	res := r.runner.Run(ctx, dir, r.list)
	if !res.Success {
		span.SetStatus(codes.Error, res.Output)
		return
	}
	p.Listed = true
	r.report.Counters.State++

	seen := make(map[string]map[string]bool)
	for _, line := range strings.Split(res.Output, "\n") {
		address := strings.TrimSpace(line)
		if address == "" {
			continue
		}
		if r.resource(ctx, dir, address, seen) {
			p.Resources++
		}
	}
}

// resource resolves one state address and reports whether it was added.
func (r *buildRun) resource(ctx context.Context, dir, address string, seen map[string]map[string]bool) bool {
	group, ok := ResourceGroup(address)
	if !ok {
		r.log.Debug().Ctx(ctx).Str("address", address).Msg("not a resource address")
		return false
	}
	if r.ex.Groups[group] {
		return false
	}

	res := r.runner.RunArgs(ctx, dir, append(append([]string{}, r.show...), address)...)
	if !res.Success {
		return false
	}
	if strings.TrimSpace(res.Output) == "" {
		r.log.Warn().Ctx(ctx).Str("address", address).Str("dir", dir).Msg("resource no longer exists in the state")
		return false
	}

	handler, ok := r.registry.Lookup(group)
	if !ok {
		r.log.Debug().Ctx(ctx).Str("group", group).Msg("state handler is not currently supported")
		r.ex.Groups[group] = true
		return false
	}

	id, ok := handler.ExtractID(res.Output)
	if !ok {
		r.log.Debug().Ctx(ctx).Str("address", address).Str("dir", dir).Msg("no identifier in resource state")
		return false
	}

	tag := handler.Tag()
	if seen[tag] == nil {
		seen[tag] = make(map[string]bool)
	}
	if seen[tag][id] {
		r.log.Debug().Ctx(ctx).Str("group", tag).Str("id", id).Str("dir", dir).Msg("duplicate identifier in project")
		return false
	}
	seen[tag][id] = true

	r.report.Counters.Resource++
	if r.report.Inventory.Add(tag, id) {
		r.report.Counters.ResourceGroup++
	}
	return true
}

// ResourceGroup returns the resource type of a state address: the
// second-to-last dot-separated segment once any instance key is removed.
func ResourceGroup(address string) (string, bool) {
	if strings.HasSuffix(address, "]") {
		if i := strings.LastIndex(address, "["); i > 0 {
			address = address[:i]
		}
	}
	parts := strings.Split(address, ".")
	if len(parts) < 2 {
		return "", false
	}
	group := parts[len(parts)-2]
	return group, group != ""
}
