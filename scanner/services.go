package scanner

import (
	"context"
	"sort"

	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/types"
)

// postProcessor adjusts a service result after every group was compared.
type postProcessor func(ctx context.Context, s *Scanner, result types.ServiceResult, detailed bool) error

// service describes the resource groups compared for one AWS service.
type service struct {
	groups []string
	post   postProcessor
}

var services = map[string]service{
	"ec2": {
		groups: []string{
			registry.TagInstance,
			registry.TagAutoscalingGroup,
			registry.TagSecurityGroup,
			registry.TagALB,
			registry.TagELB,
		},
		post: reconcileAutoScalingInstances,
	},
	"iam":        {groups: []string{registry.TagIAMUser, registry.TagIAMRole}},
	"s3":         {groups: []string{registry.TagS3Bucket}},
	"rds":        {groups: []string{registry.TagDBInstance}},
	"lambda":     {groups: []string{registry.TagLambdaFunction}},
	"dynamodb":   {groups: []string{registry.TagDynamoDBTable}},
	"sqs":        {groups: []string{registry.TagSQSQueue}},
	"ecr":        {groups: []string{registry.TagECRRepository}},
	"ecs":        {groups: []string{registry.TagECSCluster}},
	"eks":        {groups: []string{registry.TagEKSCluster}},
	"kms":        {groups: []string{registry.TagKMSKey}},
	"route53":    {groups: []string{registry.TagRoute53Zone}},
	"cloudwatch": {groups: []string{registry.TagLogGroup}},
	"cloudtrail": {groups: []string{registry.TagCloudTrail}},
	"redshift":   {groups: []string{registry.TagRedshiftCluster}},
	"memorydb":   {groups: []string{registry.TagMemoryDBCluster}},
}

// Services returns the supported service names, sorted.
func Services() []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups returns the resource groups compared for a service.
func Groups(name string) ([]string, bool) {
	svc, ok := services[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), svc.groups...), true
}

// Supported reports whether name is a known service.
func Supported(name string) bool {
	_, ok := services[name]
	return ok
}
