package model

// EvaluationResult is the read-only assessment a plugin returns from
// Evaluate and receives back in Apply.
type EvaluationResult struct {
	StepID string

	// CurrentState relates what is on disk to what is declared.
	CurrentState VerificationStatus

	// RequiresAction is true for Missing and Drifted only.
	RequiresAction bool

	// Message explains what was found. Never empty.
	Message string

	// Diff lists desired against observed attributes when they differ.
	Diff string

	// Pending lists the changes Apply would make, in order.
	Pending []string

	// Provides names the resources Apply would create. A dry run treats
	// them as present when evaluating later steps.
	Provides []string

	// InternalData carries plugin-specific state from Evaluate to Apply.
	InternalData any
}
