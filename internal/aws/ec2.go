package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/nimbus/pkg/types"
)

// ListInstances returns the instances with the given IDs in any live state
func (c *Client) ListInstances(ctx context.Context, ids []string) ([]types.Instance, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	output, err := c.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: ids,
		Filters: []ec2types.Filter{{
			Name:   aws.String("instance-state-name"),
			Values: []string{"pending", "running", "stopping", "stopped"},
		}},
	})
	if err != nil {
		return nil, classify(err, "describe instances")
	}

	var instances []types.Instance
	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			instances = append(instances, toInstance(inst))
		}
	}
	return instances, nil
}

// ImageExists reports whether the image is visible to the account
func (c *Client) ImageExists(ctx context.Context, imageID string) (bool, error) {
	output, err := c.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{imageID},
	})
	if err != nil {
		err = classify(err, "describe image "+imageID)
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return len(output.Images) > 0, nil
}

// toInstance converts an EC2 Instance to our Instance type
func toInstance(i ec2types.Instance) types.Instance {
	inst := types.Instance{
		ID:        deref(i.InstanceId),
		Type:      string(i.InstanceType),
		PrivateIP: deref(i.PrivateIpAddress),
		PublicIP:  deref(i.PublicIpAddress),
	}
	if i.State != nil {
		inst.State = string(i.State.Name)
	}
	if i.Placement != nil {
		inst.AZ = deref(i.Placement.AvailabilityZone)
	}
	if i.LaunchTime != nil {
		inst.LaunchTime = *i.LaunchTime
	}

	for _, tag := range i.Tags {
		switch deref(tag.Key) {
		case "Name":
			inst.Name = deref(tag.Value)
		case "aws:autoscaling:groupName":
			inst.ASG = deref(tag.Value)
		}
	}

	return inst
}
