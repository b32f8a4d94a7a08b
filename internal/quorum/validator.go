package quorum

// Role is a validator's rank. Order matters: higher roles may satisfy the
// lead-approval requirement.
type Role int

// Role hierarchy.
const (
	RoleJunior Role = iota + 1
	RoleSenior
	RoleLead
	RoleAdmin
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleJunior:
		return "JUNIOR"
	case RoleSenior:
		return "SENIOR"
	case RoleLead:
		return "LEAD"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// IsLead reports whether the role satisfies a lead-approval requirement.
func (r Role) IsLead() bool {
	return r >= RoleLead
}

// Validator is a registered approver. Role is immutable after registration.
// Decisions counts every approve or reject; Correct counts decisions that
// matched the trade's eventual outcome (reporting only).
type Validator struct {
	ID        string
	Role      Role
	Decisions int
	Correct   int
}

// AccuracyPct returns the share of decisions that matched the trade outcome,
// as a percentage. Validators with no settled decisions report 100.
func (v *Validator) AccuracyPct() float64 {
	if v.Decisions == 0 {
		return 100.0
	}
	return float64(v.Correct) / float64(v.Decisions) * 100.0
}
