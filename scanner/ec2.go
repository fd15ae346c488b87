package scanner

import (
	"context"

	"github.com/google/btree"

	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/types"
)

// reconcileAutoScalingInstances counts the member instances of ghost
// autoscaling groups as ghost instances too, unless excluded or ignored by
// policy. Descriptions already present for an instance are kept.
func reconcileAutoScalingInstances(ctx context.Context, s *Scanner, result types.ServiceResult, detailed bool) error {
	asgs := result[registry.TagAutoscalingGroup]
	if asgs.Count == 0 {
		return nil
	}

	members, err := s.fetcher.ASGInstances(ctx, asgs.IDs)
	if err != nil {
		return err
	}

	current := result[registry.TagInstance]
	ids := btree.NewOrderedG[string](8)
	for _, id := range current.IDs {
		ids.ReplaceOrInsert(id)
	}

	resources := current.Resources
	if detailed && resources == nil {
		resources = make(map[string]any)
	}

	added := 0
	for id, desc := range members {
		if s.excluded[id] {
			continue
		}
		if !ids.Has(id) {
			ignore, err := s.ignored(ctx, "ec2", registry.TagInstance, id, desc)
			if err != nil {
				return err
			}
			if ignore {
				continue
			}
			ids.ReplaceOrInsert(id)
			added++
		}
		if detailed {
			if _, ok := resources[id]; !ok {
				resources[id] = desc
			}
		}
	}

	merged := types.GhostResult{IDs: make([]string, 0, ids.Len()), Resources: resources}
	ids.Ascend(func(id string) bool {
		merged.IDs = append(merged.IDs, id)
		return true
	})
	merged.Count = len(merged.IDs)
	result[registry.TagInstance] = merged

	s.log.Debug().Ctx(ctx).
		Int("groups", asgs.Count).
		Int("members", len(members)).
		Int("added", added).
		Msg("reconciled autoscaling group instances")
	return nil
}
