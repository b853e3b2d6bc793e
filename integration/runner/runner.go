package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running API and worker pair
// sharing one world.
type Runner struct {
	BaseURL           string
	WorldID           uuid.UUID
	Client            *http.Client
	Timeout           time.Duration // per step
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string, worldID uuid.UUID) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		WorldID:           worldID,
		Client:            &http.Client{Timeout: 10 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Sequences may reference other sequences.
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite against the runner's world.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
		World:   r.WorldID,
	}

	// The worker publishes the world on start; wait for it.
	if _, err := PollForExpectations(ctx, r.Client, r.BaseURL, r.WorldID, Expectations{}, r.Timeout); err != nil {
		result.Error = fmt.Errorf("world %s is not available: %w", r.WorldID, err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep posts the step's command, if any, then waits for its expectations.
func (r *Runner) runStep(ctx context.Context, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	finish := func(err error) TestResult {
		result.Error = err
		result.Success = err == nil
		result.Duration = time.Since(start)
		return result
	}

	want := step.ExpectStatus
	if want == 0 {
		want = http.StatusAccepted
	}

	if step.Command != nil {
		id, err := PostCommand(ctx, r.Client, r.BaseURL, r.WorldID, *step.Command)
		var cmdErr *CommandError
		switch {
		case err == nil && want != http.StatusAccepted:
			return finish(fmt.Errorf("expected status %d, command was accepted", want))
		case errors.As(err, &cmdErr):
			if cmdErr.Status != want {
				return finish(err)
			}
			return finish(nil)
		case err != nil:
			return finish(err)
		}
		result.CommandID = id
	}

	if step.Expectations.IsEmpty() {
		return finish(nil)
	}
	_, err := PollForExpectations(ctx, r.Client, r.BaseURL, r.WorldID, step.Expectations, r.Timeout)
	return finish(err)
}

// CheckExpectations validates exp against a saved world.
func CheckExpectations(exp Expectations, ws *state.WorldState) error {
	if exp.ActiveScene != nil && ws.ActiveScene != *exp.ActiveScene {
		return fmt.Errorf("expected active scene %q, got %q", *exp.ActiveScene, ws.ActiveScene)
	}

	npc := func(id string) (state.NPCState, error) {
		n, ok := ws.NPC(id)
		if !ok {
			return n, fmt.Errorf("expected NPC %s to exist, but it doesn't", id)
		}
		return n, nil
	}
	for id, scene := range exp.NPCScenes {
		n, err := npc(id)
		if err != nil {
			return err
		}
		if n.Scene != scene {
			return fmt.Errorf("expected NPC %s in scene %s, got %s", id, scene, n.Scene)
		}
	}
	for id, target := range exp.NPCTargets {
		n, err := npc(id)
		if err != nil {
			return err
		}
		if n.TargetScene != target {
			return fmt.Errorf("expected NPC %s to be heading to %q, got %q", id, target, n.TargetScene)
		}
	}
	for id, behavior := range exp.NPCBehaviors {
		n, err := npc(id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(n.Behavior, behavior) {
			return fmt.Errorf("expected NPC %s behavior %s, got %s", id, behavior, n.Behavior)
		}
	}
	for _, id := range exp.NPCsAbsent {
		if _, ok := ws.NPC(id); ok {
			return fmt.Errorf("expected NPC %s to be removed, but it still exists", id)
		}
	}
	for id, picked := range exp.PropsPickedUp {
		i := slices.IndexFunc(ws.Props, func(p state.PropState) bool { return p.ID == id })
		if i < 0 {
			return fmt.Errorf("expected prop %s to exist, but it doesn't", id)
		}
		if ws.Props[i].PickedUp != picked {
			return fmt.Errorf("expected prop %s picked_up=%t, got %t", id, picked, ws.Props[i].PickedUp)
		}
	}
	return nil
}
