package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/edeas123/aws-terraform-casper/types"
)

// fetchInstances lists instances that are neither going away nor managed by
// an autoscaling group.
func (p *Provider) fetchInstances(ctx context.Context) (types.LiveResources, error) {
	managed, err := p.autoScalingInstanceIDs(ctx)
	if err != nil {
		return nil, err
	}

	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				id := aws.ToString(instance.InstanceId)
				if id == "" || managed[id] || isGone(instance) {
					continue
				}
				live[id] = instance
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

func isGone(instance ec2types.Instance) bool {
	if instance.State == nil {
		return false
	}
	switch instance.State.Name {
	case ec2types.InstanceStateNameShuttingDown, ec2types.InstanceStateNameTerminated:
		return true
	}
	return false
}

func (p *Provider) autoScalingInstanceIDs(ctx context.Context) (map[string]bool, error) {
	ids := make(map[string]bool)
	var nextToken *string

	for {
		output, err := p.asgClient.DescribeAutoScalingInstances(ctx, &autoscaling.DescribeAutoScalingInstancesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe autoscaling instances: %w", err)
		}

		for _, instance := range output.AutoScalingInstances {
			ids[aws.ToString(instance.InstanceId)] = true
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return ids, nil
}

func (p *Provider) fetchAutoScalingGroups(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.asgClient.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe autoscaling groups: %w", err)
		}

		for _, group := range output.AutoScalingGroups {
			live[aws.ToString(group.AutoScalingGroupName)] = group
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

// ASGInstances returns the member instances of the named autoscaling groups,
// keyed by instance id.
func (p *Provider) ASGInstances(ctx context.Context, names []string) (types.LiveResources, error) {
	live := types.LiveResources{}

	for start := 0; start < len(names); start += asgBatchSize {
		end := min(start+asgBatchSize, len(names))
		batch := names[start:end]

		var nextToken *string
		for {
			output, err := p.asgClient.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
				AutoScalingGroupNames: batch,
				NextToken:             nextToken,
			})
			if err != nil {
				return nil, fmt.Errorf("describe autoscaling groups: %w", err)
			}

			for _, group := range output.AutoScalingGroups {
				for _, instance := range group.Instances {
					live[aws.ToString(instance.InstanceId)] = instance
				}
			}

			if output.NextToken == nil {
				break
			}
			nextToken = output.NextToken
		}
	}

	return live, nil
}

func (p *Provider) fetchSecurityGroups(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var nextToken *string

	for {
		output, err := p.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe security groups: %w", err)
		}

		for _, sg := range output.SecurityGroups {
			live[aws.ToString(sg.GroupId)] = sg
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return live, nil
}

func (p *Provider) fetchALBs(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.elbv2Client.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe load balancers: %w", err)
		}

		for _, lb := range output.LoadBalancers {
			live[aws.ToString(lb.LoadBalancerName)] = lb
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return live, nil
}

func (p *Provider) fetchClassicELBs(ctx context.Context) (types.LiveResources, error) {
	live := types.LiveResources{}
	var marker *string

	for {
		output, err := p.elbClient.DescribeLoadBalancers(ctx, &elasticloadbalancing.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe classic load balancers: %w", err)
		}

		for _, lb := range output.LoadBalancerDescriptions {
			live[aws.ToString(lb.LoadBalancerName)] = lb
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return live, nil
}
