package config

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/vietdv277/nimbus/internal/netplan"
)

// FieldError is one invalid configuration value.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a configuration so the
// operator can fix them in one pass.
type ValidationErrors struct {
	Errors []FieldError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("invalid configuration (%d errors):\n  %s", len(e.Errors), strings.Join(msgs, "\n  "))
}

func (e *ValidationErrors) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationErrors) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

var deploymentControllers = map[string]bool{
	"ECS":         true,
	"CODE_DEPLOY": true,
	"EXTERNAL":    true,
}

// Validate checks the configuration. It returns a *ValidationErrors listing
// every problem, or nil.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Project == "" {
		errs.add("project", "must not be empty")
	}
	if c.Region == "" {
		errs.add("region", "must not be empty")
	}
	if c.AccountID != "" && !isAccountID(c.AccountID) {
		errs.add("account_id", "%q is not a 12 digit account id", c.AccountID)
	}

	if _, ok := c.StreamCrawlers.MemoryTiers[c.Stage]; !ok {
		errs.add("stage", "%q has no memory tier (known: %s)", c.Stage, strings.Join(sortedKeys(c.StreamCrawlers.MemoryTiers), ", "))
	}

	c.validateNetwork(errs)

	for field, placement := range map[string]string{
		"warehouse.placement": c.Warehouse.Placement,
		"broker.placement":    c.Broker.Placement,
		"crawler.placement":   c.Crawler.Placement,
		"cluster.placement":   c.Cluster.Placement,
	} {
		if !netplan.Role(placement).Valid() {
			errs.add(field, "unknown subnet group %q", placement)
		}
	}

	if c.Warehouse.Port <= 0 || c.Warehouse.Port > 65535 {
		errs.add("warehouse.port", "%d is out of range", c.Warehouse.Port)
	}
	if c.Crawler.Timeout <= 0 || c.Crawler.Timeout > 900 {
		errs.add("crawler.timeout", "must be between 1 and 900 seconds")
	}
	if c.StreamCrawlers.Timeout <= 0 || c.StreamCrawlers.Timeout > 900 {
		errs.add("stream_crawlers.timeout", "must be between 1 and 900 seconds")
	}

	c.validateServices(errs)

	return errs.orNil()
}

func (c *Config) validateNetwork(errs *ValidationErrors) {
	n := c.Network
	if n.Name == "" {
		errs.add("network.name", "must not be empty")
	}
	if _, _, err := net.ParseCIDR(n.CIDR); err != nil {
		errs.add("network.cidr", "%q is not a CIDR block", n.CIDR)
		return
	}
	seen := make(map[string]bool, len(n.Zones))
	for _, z := range n.Zones {
		switch {
		case z == "":
			errs.add("network.zones", "zone suffix must not be empty")
		case seen[z]:
			errs.add("network.zones", "zone %q listed twice", z)
		}
		seen[z] = true
	}
	c.validateEndpoints(errs)
	for name := range n.Groups {
		if !netplan.Role(name).Valid() {
			errs.add("network.groups", "unknown subnet group %q", name)
		}
	}
	for _, role := range netplan.Roles() {
		if _, ok := n.Groups[string(role)]; !ok {
			errs.add("network.groups", "missing subnet group %q", role)
		}
	}
	if _, err := c.SubnetPlan(); err != nil {
		errs.add("network.groups", "%v", err)
	}
}

// validateEndpoints rejects repeated services. Gateway and interface
// endpoints share a resource name per service, so the lists must not overlap.
func (c *Config) validateEndpoints(errs *ValidationErrors) {
	seen := make(map[string]string)
	check := func(field string, services []string) {
		for _, svc := range services {
			if prev, ok := seen[svc]; ok {
				errs.add(field, "%q already listed in %s", svc, prev)
				continue
			}
			seen[svc] = field
		}
	}
	check("network.gateway_endpoints", c.Network.GatewayEndpoints)
	check("network.interface_endpoints", c.Network.InterfaceEndpoints)
}

func (c *Config) validateServices(errs *ValidationErrors) {
	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		field := fmt.Sprintf("services[%d]", i)
		if svc.Name == "" {
			errs.add(field+".name", "must not be empty")
		} else if seen[svc.Name] {
			errs.add(field+".name", "duplicate service %q", svc.Name)
		}
		seen[svc.Name] = true

		if svc.Repository == "" {
			errs.add(field+".repository", "must not be empty")
		}
		if svc.ContainerPort <= 0 || svc.ContainerPort > 65535 {
			errs.add(field+".container_port", "%d is out of range", svc.ContainerPort)
		}
		if svc.DesiredCount != nil && *svc.DesiredCount < 0 {
			errs.add(field+".desired_count", "must not be negative")
		}
		if !deploymentControllers[svc.DeploymentController] {
			errs.add(field+".deployment_controller", "unknown controller %q", svc.DeploymentController)
		}
		for j, s := range svc.Secrets {
			if s.Name == "" || s.Parameter == "" {
				errs.add(fmt.Sprintf("%s.secrets[%d]", field, j), "name and parameter are required")
			}
		}
	}
}

func isAccountID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
