package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/edeas123/aws-terraform-casper/types"
)

func (p *Provider) fetchBuckets(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var token *string

	for {
		output, err := p.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list buckets: %w", err)
		}

		for _, bucket := range output.Buckets {
			live[aws.ToString(bucket.Name)] = bucket
		}

		if aws.ToString(output.ContinuationToken) == "" {
			break
		}
		token = output.ContinuationToken
	}

	return live, nil
}

// fetchDynamoDBTables keys tables by name. ListTables returns names only, so
// the description is the name itself.
func (p *Provider) fetchDynamoDBTables(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}

	paginator := dynamodb.NewListTablesPaginator(p.dynamodbClient, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		for _, name := range output.TableNames {
			live[name] = name
		}
	}

	return live, nil
}

func (p *Provider) fetchDBInstances(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe db instances: %w", err)
		}

		for _, instance := range output.DBInstances {
			live[aws.ToString(instance.DBInstanceIdentifier)] = instance
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return live, nil
}

func (p *Provider) fetchRedshiftClusters(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.redshiftClient.DescribeClusters(ctx, &redshift.DescribeClustersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe redshift clusters: %w", err)
		}

		for _, cluster := range output.Clusters {
			live[aws.ToString(cluster.ClusterIdentifier)] = cluster
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return live, nil
}

func (p *Provider) fetchMemoryDBClusters(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.memorydbClient.DescribeClusters(ctx, &memorydb.DescribeClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe memorydb clusters: %w", err)
		}

		for _, cluster := range output.Clusters {
			live[aws.ToString(cluster.Name)] = cluster
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}
