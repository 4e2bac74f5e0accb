package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// NatGroup returns the auto scaling group whose Name tag is name, with its
// instances.
func (c *Client) NatGroup(ctx context.Context, name string) (*types.AutoScalingGroup, error) {
	output, err := c.ASG.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		Filters: []asgtypes.Filter{{
			Name:   aws.String("tag:Name"),
			Values: []string{name},
		}},
	})
	if err != nil {
		return nil, classify(err, "describe auto scaling groups")
	}

	if len(output.AutoScalingGroups) == 0 {
		return nil, fmt.Errorf("auto scaling group tagged Name=%s: %w", name, provider.ErrNotFound)
	}
	if len(output.AutoScalingGroups) > 1 {
		logger.Warningf("%d auto scaling groups tagged Name=%s, using the first", len(output.AutoScalingGroups), name)
	}

	g := output.AutoScalingGroups[0]
	asg := toAutoScalingGroup(g)

	var instanceIDs []string
	for _, inst := range g.Instances {
		if inst.InstanceId != nil {
			instanceIDs = append(instanceIDs, *inst.InstanceId)
		}
	}

	instances, err := c.ListInstances(ctx, instanceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get NAT instances: %w", err)
	}
	health := make(map[string]string, len(g.Instances))
	for _, inst := range g.Instances {
		health[deref(inst.InstanceId)] = deref(inst.HealthStatus)
	}
	for i := range instances {
		instances[i].Health = health[instances[i].ID]
	}
	asg.Instances = instances

	return &asg, nil
}

// Refresh starts a rolling instance refresh. The NAT group runs a single
// instance, so the refresh tolerates it being replaced.
func (c *Client) Refresh(ctx context.Context, groupName string) (*types.InstanceRefresh, error) {
	output, err := c.ASG.StartInstanceRefresh(ctx, &autoscaling.StartInstanceRefreshInput{
		AutoScalingGroupName: aws.String(groupName),
		Strategy:             asgtypes.RefreshStrategyRolling,
		Preferences: &asgtypes.RefreshPreferences{
			MinHealthyPercentage: aws.Int32(0),
		},
	})
	if err != nil {
		return nil, classify(err, "start instance refresh of "+groupName)
	}

	return &types.InstanceRefresh{
		ID:     deref(output.InstanceRefreshId),
		Status: string(asgtypes.InstanceRefreshStatusPending),
	}, nil
}

// RefreshStatus returns the state of an instance refresh
func (c *Client) RefreshStatus(ctx context.Context, groupName, refreshID string) (*types.InstanceRefresh, error) {
	output, err := c.ASG.DescribeInstanceRefreshes(ctx, &autoscaling.DescribeInstanceRefreshesInput{
		AutoScalingGroupName: aws.String(groupName),
		InstanceRefreshIds:   []string{refreshID},
	})
	if err != nil {
		return nil, classify(err, "describe instance refresh "+refreshID)
	}
	if len(output.InstanceRefreshes) == 0 {
		return nil, fmt.Errorf("instance refresh %s: %w", refreshID, provider.ErrNotFound)
	}

	r := output.InstanceRefreshes[0]
	return &types.InstanceRefresh{
		ID:                 deref(r.InstanceRefreshId),
		Status:             string(r.Status),
		PercentageComplete: int(deref32(r.PercentageComplete)),
		InstancesToUpdate:  int(deref32(r.InstancesToUpdate)),
		StartTime:          safeTime(r.StartTime),
		StatusReason:       deref(r.StatusReason),
	}, nil
}

// toAutoScalingGroup converts an AWS ASG type to our internal type
func toAutoScalingGroup(g asgtypes.AutoScalingGroup) types.AutoScalingGroup {
	asg := types.AutoScalingGroup{
		Name:            deref(g.AutoScalingGroupName),
		ARN:             deref(g.AutoScalingGroupARN),
		DesiredCapacity: int(deref32(g.DesiredCapacity)),
		MinSize:         int(deref32(g.MinSize)),
		MaxSize:         int(deref32(g.MaxSize)),
		Status:          deref(g.Status),
		CreatedTime:     safeTime(g.CreatedTime),
		AZs:             g.AvailabilityZones,
	}

	if g.LaunchTemplate != nil {
		asg.LaunchTemplate = deref(g.LaunchTemplate.LaunchTemplateName)
	}

	for _, inst := range g.Instances {
		asg.InstanceCount++
		if deref(inst.HealthStatus) == "Healthy" {
			asg.HealthyCount++
		} else {
			asg.UnhealthyCount++
		}
	}

	if asg.Status == "" {
		asg.Status = "InService"
	}

	return asg
}
