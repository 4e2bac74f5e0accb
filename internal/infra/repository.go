package infra

import (
	"encoding/json"
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecr"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Image tags of the crawler functions.
const (
	GithubCrawlerTag   = "github-crawler-latest"
	LinkedinCrawlerTag = "linkedin-crawler-latest"
	MediumCrawlerTag   = "medium-crawler-latest"
)

// CrawlerTags lists the crawler image tags in deployment order.
func CrawlerTags() []string {
	return []string{GithubCrawlerTag, LinkedinCrawlerTag, MediumCrawlerTag}
}

// untaggedExpiryDays is how long an untagged image survives.
const untaggedExpiryDays = 30

// LifecycleRule is one rule of an ECR lifecycle policy.
type LifecycleRule struct {
	RulePriority int                `json:"rulePriority"`
	Description  string             `json:"description"`
	Selection    LifecycleSelection `json:"selection"`
	Action       LifecycleAction    `json:"action"`
}

// LifecycleSelection picks the images a rule applies to.
type LifecycleSelection struct {
	TagStatus   string `json:"tagStatus"`
	CountType   string `json:"countType"`
	CountUnit   string `json:"countUnit,omitempty"`
	CountNumber int    `json:"countNumber"`
}

// LifecycleAction is what happens to selected images.
type LifecycleAction struct {
	Type string `json:"type"`
}

// LifecyclePolicyDocument expires untagged images 30 days after push.
func LifecyclePolicyDocument() string {
	policy := struct {
		Rules []LifecycleRule `json:"rules"`
	}{
		Rules: []LifecycleRule{{
			RulePriority: 1,
			Description:  fmt.Sprintf("Delete older than %d days images with no tag.", untaggedExpiryDays),
			Selection: LifecycleSelection{
				TagStatus:   "untagged",
				CountType:   "sinceImagePushed",
				CountUnit:   "days",
				CountNumber: untaggedExpiryDays,
			},
			Action: LifecycleAction{Type: "expire"},
		}},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}

// Repository is a container image registry.
type Repository struct {
	pulumi.ResourceState

	Name pulumi.StringOutput
	Arn  pulumi.StringOutput
	URL  pulumi.StringOutput
}

// NewRepository creates a mutable-tag registry with the untagged image
// expiry policy.
func NewRepository(ctx *pulumi.Context, name string, opts ...pulumi.ResourceOption) (*Repository, error) {
	r := &Repository{}
	if err := ctx.RegisterComponentResource(typePrefix+"ecr", name, r, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(r)

	repo, err := ecr.NewRepository(ctx, name+"-repository", &ecr.RepositoryArgs{
		Name:               pulumi.String(name),
		ImageTagMutability: pulumi.String("MUTABLE"),
		Tags:               tags("ecr"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("repository %s: %w", name, err)
	}

	_, err = ecr.NewLifecyclePolicy(ctx, name+"-lifecycle-policy", &ecr.LifecyclePolicyArgs{
		Repository: repo.Name,
		Policy:     pulumi.String(LifecyclePolicyDocument()),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("lifecycle policy %s: %w", name, err)
	}

	r.Name = repo.Name
	r.Arn = repo.Arn
	r.URL = repo.RepositoryUrl

	if err := ctx.RegisterResourceOutputs(r, pulumi.Map{
		"name": r.Name,
		"arn":  r.Arn,
		"url":  r.URL,
	}); err != nil {
		return nil, err
	}

	return r, nil
}

// ImageURI returns the registry reference of one of its tags.
func (r *Repository) ImageURI(tag string) pulumi.StringOutput {
	return pulumi.Sprintf("%s:%s", r.URL, tag)
}
