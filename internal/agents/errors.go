package agents

import (
	"fmt"
	"strings"
	"time"
)

// TransportError is a network or backend failure talking to an agent.
// Retryable without prompt changes.
type TransportError struct {
	Role Role
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s agent transport failure: %v", e.Role, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError means the agent did not answer within the per-call deadline.
type TimeoutError struct {
	Role  Role
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s agent timed out after %s", e.Role, e.Limit)
}

// SchemaError means the agent answered, but the reply failed structural
// validation. Violations carry field-level detail so the retry controller
// can feed a corrective instruction back to the agent.
type SchemaError struct {
	Role       Role
	Violations []string
	Err        error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s agent output failed schema validation: %s", e.Role, strings.Join(e.Violations, "; "))
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ExhaustedRetriesError is raised by the retry controller after the attempt
// ceiling is reached. It terminates the run as a skip record.
type ExhaustedRetriesError struct {
	Role     Role
	Attempts int
	LastErr  error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s agent failed after %d attempts: %v", e.Role, e.Attempts, e.LastErr)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.LastErr }
