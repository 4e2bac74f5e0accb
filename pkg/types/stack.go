package types

import "time"

// StackOutput is one flattened stack output
type StackOutput struct {
	Key    string
	Value  string
	Secret bool
}

// ChangeCount is the number of resources affected by one operation kind
type ChangeCount struct {
	Op    string // create, update, delete, same, replace
	Count int
}

// StackSummary describes a deployment stack known to the engine
type StackSummary struct {
	Name             string
	Current          bool
	LastUpdate       time.Time
	UpdateInProgress bool
	ResourceCount    int
	URL              string
}
