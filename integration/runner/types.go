package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/internal/handlers"
)

// TestSuite defines a complete integration test scenario.
// Either a regular test with Steps, or a sequence of other Cases.
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps,omitempty"`
	Cases []string   `json:"cases,omitempty"` // case files, relative to the cases directory
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep posts one command (optional) and waits for the world to match
// the expectations.
type TestStep struct {
	Name         string                   `json:"name,omitempty"`
	Command      *handlers.CommandRequest `json:"command,omitempty"`
	ExpectStatus int                      `json:"expect_status,omitempty"` // defaults to 202
	Expectations Expectations             `json:"expect"`
}

// Expectations defines what the saved world must look like after a step.
// Empty fields are not checked.
type Expectations struct {
	ActiveScene   *string           `json:"active_scene,omitempty"`
	NPCScenes     map[string]string `json:"npc_scenes,omitempty"`
	NPCTargets    map[string]string `json:"npc_target_scenes,omitempty"`
	NPCBehaviors  map[string]string `json:"npc_behaviors,omitempty"`
	NPCsAbsent    []string          `json:"npcs_absent,omitempty"`
	PropsPickedUp map[string]bool   `json:"props_picked_up,omitempty"`
}

// IsEmpty reports whether no expectation is set.
func (e Expectations) IsEmpty() bool {
	return e.ActiveScene == nil && len(e.NPCScenes) == 0 && len(e.NPCTargets) == 0 &&
		len(e.NPCBehaviors) == 0 && len(e.NPCsAbsent) == 0 && len(e.PropsPickedUp) == 0
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName  string
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	CommandID string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	World    uuid.UUID
}
