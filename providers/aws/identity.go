package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/edeas123/aws-terraform-casper/types"
)

func (p *Provider) fetchIAMUsers(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.iamClient.ListUsers(ctx, &iam.ListUsersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		for _, user := range output.Users {
			live[aws.ToString(user.UserName)] = user
		}

		if !output.IsTruncated {
			break
		}
		marker = output.Marker
	}

	return live, nil
}

// serviceLinkedRolePath is the path AWS creates service-linked roles under.
// Those roles are owned by AWS services and never tracked in Terraform.
const serviceLinkedRolePath = "/aws-service-role/"

// managedKeyAliasPrefix prefixes the aliases of AWS managed KMS keys.
const managedKeyAliasPrefix = "alias/aws/"

// fetchIAMRoles skips service-linked roles.
func (p *Provider) fetchIAMRoles(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.iamClient.ListRoles(ctx, &iam.ListRolesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}

		for _, role := range output.Roles {
			if strings.HasPrefix(aws.ToString(role.Path), serviceLinkedRolePath) {
				continue
			}
			live[aws.ToString(role.RoleName)] = role
		}

		if !output.IsTruncated {
			break
		}
		marker = output.Marker
	}

	return live, nil
}

// fetchKMSKeys skips AWS managed keys, recognized by their alias/aws/ alias.
func (p *Provider) fetchKMSKeys(ctx context.Context) (types.LiveResources, error) {
	managed, err := p.managedKMSKeys(ctx)
	if err != nil {
		return nil, err
	}

	live := types.LiveResources{}

	paginator := kms.NewListKeysPaginator(p.kmsClient, &kms.ListKeysInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		for _, key := range output.Keys {
			if managed[aws.ToString(key.KeyId)] {
				continue
			}
			live[aws.ToString(key.KeyId)] = key
		}
	}

	return live, nil
}

func (p *Provider) managedKMSKeys(ctx context.Context) (map[string]bool, error) {
	managed := make(map[string]bool)

	paginator := kms.NewListAliasesPaginator(p.kmsClient, &kms.ListAliasesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list aliases: %w", err)
		}
		for _, alias := range output.Aliases {
			if alias.TargetKeyId != nil && strings.HasPrefix(aws.ToString(alias.AliasName), managedKeyAliasPrefix) {
				managed[aws.ToString(alias.TargetKeyId)] = true
			}
		}
	}

	return managed, nil
}
