package types

import "time"

// Parameter represents a parameter store entry
type Parameter struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"` // String, StringList, SecureString
	Version      int64     `json:"version"`
	LastModified time.Time `json:"last_modified"`
	Value        string    `json:"value,omitempty"`
}

// Secret represents a secret metadata
type Secret struct {
	Name      string    `json:"name"` // Secret name or path
	ARN       string    `json:"arn"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SecretValue represents a secret with its value
type SecretValue struct {
	Secret
	Value   string `json:"value"`
	Version string `json:"version"`
}
