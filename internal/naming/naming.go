// Package naming holds the parameter store, secret and image naming
// conventions shared by the infrastructure program and the operator CLI.
// Downstream applications resolve these paths at runtime, so they must not
// change shape.
package naming

import (
	"fmt"
	"strings"
)

// BrokerPort is the AMQP-over-TLS port published for broker consumers.
const BrokerPort = "5671"

// Broker user secrets, stored under /{name}/broker/{user}.
const (
	BrokerAdminUser       = "admin"
	BrokerReplicationUser = "replication-user"
)

// MasterUsernamePath returns /{name}/cluster/master/username
func MasterUsernamePath(name string) string {
	return fmt.Sprintf("/%s/cluster/master/username", name)
}

// MasterPasswordPath returns /{name}/cluster/master/password
func MasterPasswordPath(name string) string {
	return fmt.Sprintf("/%s/cluster/master/password", name)
}

// ClusterHostPath returns /{name}/cluster/host
func ClusterHostPath(name string) string {
	return fmt.Sprintf("/%s/cluster/host", name)
}

// BrokerHostPath returns /{name}/broker/host
func BrokerHostPath(name string) string {
	return fmt.Sprintf("/%s/broker/host", name)
}

// BrokerPortPath returns /{name}/broker/port
func BrokerPortPath(name string) string {
	return fmt.Sprintf("/%s/broker/port", name)
}

// BrokerSecretName returns the Secrets Manager name of a broker user.
func BrokerSecretName(name, user string) string {
	return fmt.Sprintf("/%s/broker/%s", name, user)
}

// BrokerSecretARN returns the partial ARN used to look up a broker user secret.
func BrokerSecretARN(region, accountID, name, user string) string {
	return fmt.Sprintf("arn:aws:secretsmanager:%s:%s:secret:%s", region, accountID, BrokerSecretName(name, user))
}

// ParameterARN returns the SSM parameter ARN for a path with or without a
// leading slash.
func ParameterARN(region, accountID, parameter string) string {
	return fmt.Sprintf("arn:aws:ssm:%s:%s:parameter/%s", region, accountID, strings.TrimPrefix(parameter, "/"))
}

// Registry returns the private ECR registry host of an account.
func Registry(accountID, region string) string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", accountID, region)
}

// ImageURI returns {account}.dkr.ecr.{region}.amazonaws.com/{repo}:{tag}
func ImageURI(accountID, region, repository, tag string) string {
	return fmt.Sprintf("%s/%s:%s", Registry(accountID, region), repository, tag)
}

// LambdaLogGroupARN matches every Lambda log group of an account.
func LambdaLogGroupARN(region, accountID string) string {
	return fmt.Sprintf("arn:aws:logs:%s:%s:log-group:/aws/lambda/*:*", region, accountID)
}

// ServiceEndpoint returns the AWS service name of a VPC endpoint.
func ServiceEndpoint(region, service string) string {
	return fmt.Sprintf("com.amazonaws.%s.%s", region, service)
}
