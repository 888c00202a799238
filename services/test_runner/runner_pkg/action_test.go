package runner_pkg_test

import (
	"encoding/json"
	"testing"

	"agi/services/test_runner/runner_pkg"
	"gopkg.in/yaml.v3"
)

func TestStepActionDecodeJSON(t *testing.T) {
	var steps []runner_pkg.Step
	body := `[{"action":"TYPE","selector":"#q","value":"go"},{"action":"assert","assertion":"toBeVisible","selector":"#r"},{"action":"dance"}]`
	if err := json.Unmarshal([]byte(body), &steps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if steps[0].Action.Kind != runner_pkg.ActionFill || steps[0].Action.Name != "TYPE" {
		t.Errorf("type alias: %+v", steps[0].Action)
	}
	if steps[1].Action.Kind != runner_pkg.ActionExpect || steps[1].Assertion.Kind != runner_pkg.AssertionToBeVisible {
		t.Errorf("assert alias: %+v %+v", steps[1].Action, steps[1].Assertion)
	}
	if steps[2].Action.Kind != runner_pkg.ActionUnknown || steps[2].Action.String() != "dance" {
		t.Errorf("unknown: %+v", steps[2].Action)
	}
}

func TestStepActionRejectsNonString(t *testing.T) {
	var s runner_pkg.Step
	if err := json.Unmarshal([]byte(`{"action":42}`), &s); err == nil {
		t.Fatalf("expected error for numeric action")
	}
}

func TestStepActionDecodeYAML(t *testing.T) {
	var tc runner_pkg.TestCase
	doc := `
name: Search
steps:
  - action: goto
    url: https://example.test
  - action: press
    key: enter
    continueOnFail: true
`
	if err := yaml.Unmarshal([]byte(doc), &tc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tc.Steps) != 2 || tc.Steps[0].Action.Kind != runner_pkg.ActionGoto || tc.Steps[1].Action.Kind != runner_pkg.ActionPress {
		t.Fatalf("steps=%+v", tc.Steps)
	}
	if !tc.Steps[1].ContinuesOnFail() || tc.Steps[0].ContinuesOnFail() {
		t.Fatalf("continueOnFail not decoded")
	}
}

func TestStepActionEncodesRawName(t *testing.T) {
	data, err := json.Marshal(runner_pkg.Step{Action: runner_pkg.NewStepAction("type")})
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]interface{}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["action"] != "type" {
		t.Fatalf("action=%v", back["action"])
	}
}

func TestParseEngine(t *testing.T) {
	for name, want := range map[string]runner_pkg.Engine{
		"chromium": runner_pkg.EngineChromium,
		" WebKit ": runner_pkg.EngineWebKit,
		"firefox":  runner_pkg.EngineFirefox,
	} {
		if got, ok := runner_pkg.ParseEngine(name); !ok || got != want {
			t.Errorf("%q: %s %t", name, got, ok)
		}
	}
	if _, ok := runner_pkg.ParseEngine("edge"); ok {
		t.Errorf("edge should not parse")
	}
}
