package infra

import (
	"encoding/json"
)

const policyVersion = "2012-10-17"

// PolicyDocument is an IAM policy or trust policy.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is one IAM policy statement. Action and Resource hold either a
// string or a list of strings.
type Statement struct {
	Sid       string            `json:"Sid,omitempty"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal,omitempty"`
	Action    any               `json:"Action"`
	Resource  any               `json:"Resource,omitempty"`
}

// Managed policies attached by the components.
const (
	policySSMManagedInstanceCore     = "arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"
	policyS3FullAccess               = "arn:aws:iam::aws:policy/AmazonS3FullAccess"
	policyDocDBFullAccess            = "arn:aws:iam::aws:policy/AmazonDocDBFullAccess"
	policyLambdaBasicExecution       = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
	policyLambdaVPCAccessExecution   = "arn:aws:iam::aws:policy/service-role/AWSLambdaVPCAccessExecutionRole"
	policyLambdaInsightsExecution    = "arn:aws:iam::aws:policy/CloudWatchLambdaInsightsExecutionRolePolicy"
	policyECSTaskExecutionRolePolicy = "arn:aws:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy"
)

// JSON renders the document. Marshalling plain strings and slices cannot
// fail, so errors are not surfaced.
func (d PolicyDocument) JSON() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// NewPolicy wraps statements in a versioned policy document.
func NewPolicy(statements ...Statement) PolicyDocument {
	return PolicyDocument{Version: policyVersion, Statement: statements}
}

// Allow grants actions on resource.
func Allow(resource any, actions ...string) Statement {
	var action any = actions
	if len(actions) == 1 {
		action = actions[0]
	}
	return Statement{Effect: "Allow", Action: action, Resource: resource}
}

// AssumeRolePolicy is the trust policy letting an AWS service assume a role.
func AssumeRolePolicy(service string) string {
	return NewPolicy(Statement{
		Effect:    "Allow",
		Principal: map[string]string{"Service": service},
		Action:    "sts:AssumeRole",
	}).JSON()
}
