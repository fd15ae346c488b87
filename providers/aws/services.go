package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/edeas123/aws-terraform-casper/types"
)

func (p *Provider) fetchLambdaFunctions(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.lambdaClient.ListFunctions(ctx, &lambda.ListFunctionsInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list functions: %w", err)
		}

		for _, fn := range output.Functions {
			live[aws.ToString(fn.FunctionName)] = fn
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return live, nil
}

// fetchSQSQueues keys queues by URL, which is what Terraform records as the
// queue id.
func (p *Provider) fetchSQSQueues(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.sqsClient.ListQueues(ctx, &sqs.ListQueuesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("list queues: %w", err)
		}

		for _, url := range output.QueueUrls {
			live[url] = url
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

func (p *Provider) fetchECRRepositories(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}

	paginator := ecr.NewDescribeRepositoriesPaginator(p.ecrClient, &ecr.DescribeRepositoriesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe repositories: %w", err)
		}
		for _, repo := range output.Repositories {
			live[aws.ToString(repo.RepositoryName)] = repo
		}
	}

	return live, nil
}

// fetchECSClusters keys clusters by the name carried in their ARN.
func (p *Provider) fetchECSClusters(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.ecsClient.ListClusters(ctx, &ecs.ListClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("list ecs clusters: %w", err)
		}

		for _, clusterARN := range output.ClusterArns {
			live[ecsClusterName(clusterARN)] = clusterARN
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

func ecsClusterName(clusterARN string) string {
	parsed, err := arn.Parse(clusterARN)
	if err != nil {
		return clusterARN
	}
	return strings.TrimPrefix(parsed.Resource, "cluster/")
}

func (p *Provider) fetchEKSClusters(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.eksClient.ListClusters(ctx, &eks.ListClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("list eks clusters: %w", err)
		}

		for _, name := range output.Clusters {
			live[name] = name
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

func (p *Provider) fetchHostedZones(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.route53Client.ListHostedZones(ctx, &route53.ListHostedZonesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("list hosted zones: %w", err)
		}

		for _, zone := range output.HostedZones {
			live[strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/")] = zone
		}

		if !output.IsTruncated {
			break
		}
		marker = output.NextMarker
	}

	return live, nil
}

func (p *Provider) fetchLogGroups(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.cwLogsClient.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe log groups: %w", err)
		}

		for _, group := range output.LogGroups {
			live[aws.ToString(group.LogGroupName)] = group
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

func (p *Provider) fetchTrails(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.cloudtrailClient.ListTrails(ctx, &cloudtrail.ListTrailsInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("list trails: %w", err)
		}

		for _, trail := range output.Trails {
			live[aws.ToString(trail.Name)] = trail
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}
