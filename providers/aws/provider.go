// Package aws lists live AWS resources per canonical resource group.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"

	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/types"
)

// ErrUnsupportedGroup is returned by Fetch for a group with no fetcher.
var ErrUnsupportedGroup = errors.New("unsupported resource group")

// asgBatchSize is the most group names DescribeAutoScalingGroups accepts.
const asgBatchSize = 50

// Config holds AWS provider configuration.
type Config struct {
	Profile string
	Region  string
}

// LoadConfig resolves credentials and region, honoring a shared config
// profile when one is set.
func LoadConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Provider fetches live resources through the AWS SDK.
type Provider struct {
	log zerolog.Logger

	// AWS clients (interfaces for testability)
	ec2Client        EC2API
	asgClient        AutoScalingAPI
	elbv2Client      ELBv2API
	elbClient        ClassicELBAPI
	s3Client         S3API
	iamClient        IAMAPI
	rdsClient        RDSAPI
	lambdaClient     LambdaAPI
	dynamodbClient   DynamoDBAPI
	sqsClient        SQSAPI
	ecrClient        ECRAPI
	ecsClient        ECSAPI
	eksClient        EKSAPI
	kmsClient        KMSAPI
	route53Client    Route53API
	cwLogsClient     CloudWatchLogsAPI
	cloudtrailClient CloudTrailAPI
	redshiftClient   RedshiftAPI
	memorydbClient   MemoryDBAPI
}

// NewFromConfig creates a provider sharing an existing AWS configuration.
func NewFromConfig(awsCfg aws.Config, log zerolog.Logger) *Provider {
	return &Provider{
		log:              log.With().Str("component", "aws").Logger(),
		ec2Client:        ec2.NewFromConfig(awsCfg),
		asgClient:        autoscaling.NewFromConfig(awsCfg),
		elbv2Client:      elasticloadbalancingv2.NewFromConfig(awsCfg),
		elbClient:        elasticloadbalancing.NewFromConfig(awsCfg),
		s3Client:         s3.NewFromConfig(awsCfg),
		iamClient:        iam.NewFromConfig(awsCfg),
		rdsClient:        rds.NewFromConfig(awsCfg),
		lambdaClient:     lambda.NewFromConfig(awsCfg),
		dynamodbClient:   dynamodb.NewFromConfig(awsCfg),
		sqsClient:        sqs.NewFromConfig(awsCfg),
		ecrClient:        ecr.NewFromConfig(awsCfg),
		ecsClient:        ecs.NewFromConfig(awsCfg),
		eksClient:        eks.NewFromConfig(awsCfg),
		kmsClient:        kms.NewFromConfig(awsCfg),
		route53Client:    route53.NewFromConfig(awsCfg),
		cwLogsClient:     cloudwatchlogs.NewFromConfig(awsCfg),
		cloudtrailClient: cloudtrail.NewFromConfig(awsCfg),
		redshiftClient:   redshift.NewFromConfig(awsCfg),
		memorydbClient:   memorydb.NewFromConfig(awsCfg),
	}
}

type fetcher func(context.Context) (types.LiveResources, error)

func (p *Provider) fetchers() map[string]fetcher {
	return map[string]fetcher{
		registry.TagInstance:         p.fetchInstances,
		registry.TagAutoscalingGroup: p.fetchAutoScalingGroups,
		registry.TagSecurityGroup:    p.fetchSecurityGroups,
		registry.TagALB:              p.fetchALBs,
		registry.TagELB:              p.fetchClassicELBs,
		registry.TagS3Bucket:         p.fetchBuckets,
		registry.TagIAMUser:          p.fetchIAMUsers,
		registry.TagIAMRole:          p.fetchIAMRoles,
		registry.TagDBInstance:       p.fetchDBInstances,
		registry.TagLambdaFunction:   p.fetchLambdaFunctions,
		registry.TagDynamoDBTable:    p.fetchDynamoDBTables,
		registry.TagSQSQueue:         p.fetchSQSQueues,
		registry.TagECRRepository:    p.fetchECRRepositories,
		registry.TagECSCluster:       p.fetchECSClusters,
		registry.TagEKSCluster:       p.fetchEKSClusters,
		registry.TagKMSKey:           p.fetchKMSKeys,
		registry.TagRoute53Zone:      p.fetchHostedZones,
		registry.TagLogGroup:         p.fetchLogGroups,
		registry.TagCloudTrail:       p.fetchTrails,
		registry.TagRedshiftCluster:  p.fetchRedshiftClusters,
		registry.TagMemoryDBCluster:  p.fetchMemoryDBClusters,
	}
}

// Fetch lists the live resources of a canonical group.
func (p *Provider) Fetch(ctx context.Context, tag string) (types.LiveResources, error) {
	fn, ok := p.fetchers()[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGroup, tag)
	}

	live, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", tag, err)
	}

	p.log.Debug().Ctx(ctx).Str("group", tag).Int("count", len(live)).Msg("fetched live resources")
	return live, nil
}
