// Package scanner compares live AWS resources against the tracked inventory
// and reports the ghosts: live resources no Terraform state knows about.
package scanner

import (
	"context"
	"fmt"

	"github.com/google/btree"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/internal/telemetry"
	"github.com/edeas123/aws-terraform-casper/policy"
	"github.com/edeas123/aws-terraform-casper/types"
)

// Fetcher lists live resources.
type Fetcher interface {
	registry.Source
	ASGInstances(ctx context.Context, names []string) (types.LiveResources, error)
}

// Policy decides whether a candidate ghost is dropped.
type Policy interface {
	Ignore(ctx context.Context, in policy.Input) (bool, error)
}

// Config holds the scanner's collaborators.
type Config struct {
	Fetcher   Fetcher
	Registry  *registry.Registry
	Inventory types.Inventory
	Excluded  []string
	Policy    Policy
}

// Scanner compares one service at a time.
type Scanner struct {
	fetcher   Fetcher
	registry  *registry.Registry
	inventory types.Inventory
	excluded  map[string]bool
	policy    Policy
	log       zerolog.Logger
}

// New creates a Scanner. A nil Policy keeps every ghost.
func New(cfg Config, log zerolog.Logger) *Scanner {
	excluded := make(map[string]bool, len(cfg.Excluded))
	for _, id := range cfg.Excluded {
		if id != "" {
			excluded[id] = true
		}
	}

	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}

	inv := cfg.Inventory
	if inv == nil {
		inv = types.Inventory{}
	}

	return &Scanner{
		fetcher:   cfg.Fetcher,
		registry:  reg,
		inventory: inv,
		excluded:  excluded,
		policy:    cfg.Policy,
		log:       log.With().Str("component", "scanner").Logger(),
	}
}

// Scan compares every resource group of a service. An unknown service or
// group is logged and skipped; a provider or policy error fails the scan.
func (s *Scanner) Scan(ctx context.Context, name string, detailed bool) (types.ServiceResult, error) {
	result := types.ServiceResult{}

	svc, ok := services[name]
	if !ok {
		s.log.Warn().Ctx(ctx).Str("service", name).Msg("service is not currently supported")
		return result, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "scan.service", attribute.String("casper.service", name))
	defer span.End()

	for _, tag := range svc.groups {
		ghost, err := s.scanGroup(ctx, name, tag, detailed)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if ghost != nil {
			result[tag] = *ghost
		}
	}

	if svc.post != nil {
		if err := svc.post(ctx, s, result, detailed); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("post-process %s: %w", name, err)
		}
	}

	span.SetAttributes(attribute.Int("casper.ghosts", result.Total()))
	return result, nil
}

// scanGroup returns nil when the group has no handler.
func (s *Scanner) scanGroup(ctx context.Context, service, tag string, detailed bool) (*types.GhostResult, error) {
	handler, ok := s.registry.Lookup(tag)
	if !ok {
		s.log.Warn().Ctx(ctx).Str("service", service).Str("group", tag).Msg("resource group is not currently supported")
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "scan.group", attribute.String("casper.group", tag))
	defer span.End()

	live, err := handler.FetchLive(ctx, s.fetcher)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scan %s: %w", service, err)
	}

	tracked := s.inventory.IDs(handler.Tag())
	ghosts := btree.NewOrderedG[string](8)

	for id, desc := range live {
		if tracked[id] || s.excluded[id] {
			continue
		}
		ignore, err := s.ignored(ctx, service, tag, id, desc)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if ignore {
			continue
		}
		ghosts.ReplaceOrInsert(id)
	}

	s.log.Debug().Ctx(ctx).
		Str("group", tag).
		Int("live", len(live)).
		Int("tracked", len(tracked)).
		Int("ghosts", ghosts.Len()).
		Msg("compared resource group")

	return newGhostResult(ghosts, live, detailed), nil
}

// ignored asks the policy whether a candidate ghost is accepted.
func (s *Scanner) ignored(ctx context.Context, service, tag, id string, desc any) (bool, error) {
	if s.policy == nil {
		return false, nil
	}
	ignore, err := s.policy.Ignore(ctx, policy.Input{Service: service, Group: tag, ID: id, Resource: desc})
	if err != nil {
		return false, err
	}
	if ignore {
		s.log.Debug().Ctx(ctx).Str("group", tag).Str("id", id).Msg("ghost ignored by policy")
	}
	return ignore, nil
}

func newGhostResult(ids *btree.BTreeG[string], live types.LiveResources, detailed bool) *types.GhostResult {
	g := &types.GhostResult{IDs: make([]string, 0, ids.Len())}
	if detailed {
		g.Resources = make(map[string]any, ids.Len())
	}
	ids.Ascend(func(id string) bool {
		g.IDs = append(g.IDs, id)
		if detailed {
			g.Resources[id] = live[id]
		}
		return true
	})
	g.Count = len(g.IDs)
	return g
}
