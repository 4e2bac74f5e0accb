package types

// CheckStatus is the outcome of a preflight check
type CheckStatus string

const (
	CheckPassed  CheckStatus = "pass"
	CheckWarning CheckStatus = "warn"
	CheckFailed  CheckStatus = "fail"
)

// Check is one preflight check result
type Check struct {
	Name   string // what was checked, e.g. "parameter /warehouse/cluster/host"
	Status CheckStatus
	Detail string
}

// Failed reports whether any check failed
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == CheckFailed {
			return true
		}
	}
	return false
}

// CallerIdentity represents the credentials in use
type CallerIdentity struct {
	Account string
	Arn     string
	UserID  string
}
