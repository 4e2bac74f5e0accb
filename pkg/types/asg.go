package types

import "time"

// AutoScalingGroup represents an AWS Auto Scaling Group
type AutoScalingGroup struct {
	Name            string
	ARN             string
	LaunchTemplate  string
	DesiredCapacity int
	MinSize         int
	MaxSize         int
	InstanceCount   int // current running instances
	HealthyCount    int
	UnhealthyCount  int
	Status          string // InService, Updating, etc.
	CreatedTime     time.Time
	AZs             []string
	Instances       []Instance
}

// InstanceRefresh is the state of a rolling replacement of an ASG's instances
type InstanceRefresh struct {
	ID                 string
	Status             string
	PercentageComplete int
	InstancesToUpdate  int
	StartTime          time.Time
	StatusReason       string
}
