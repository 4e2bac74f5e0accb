package types

import "time"

// Instance represents an EC2 instance, such as the NAT instance
type Instance struct {
	ID         string
	Name       string
	PrivateIP  string
	PublicIP   string
	State      string
	Type       string
	AZ         string
	ASG        string
	Health     string
	LaunchTime time.Time
}
