package vm

import "fmt"

// StepLimitError is returned by Run when a program dispatches more than
// WithMaxSteps instructions without halting. The direct descendant of the
// teacher's memLimit/memLimitError pair (jcorbin-gothird's mem package),
// adapted from a memory-size guard to an instruction-count guard since this
// machine has no paged address space to bound.
type StepLimitError struct {
	Limit int
}

func (e StepLimitError) Error() string {
	return fmt.Sprintf("step limit of %d instructions exceeded", e.Limit)
}
