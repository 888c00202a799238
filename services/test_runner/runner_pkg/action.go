package runner_pkg

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the closed set of step kinds the interpreter understands.
type Action int

const (
	ActionUnknown Action = iota
	ActionGoto
	ActionClick
	ActionFill
	ActionSelect
	ActionWait
	ActionScreenshot
	ActionScroll
	ActionHover
	ActionPress
	ActionExpect
)

var actionNames = map[string]Action{
	"goto":       ActionGoto,
	"click":      ActionClick,
	"fill":       ActionFill,
	"type":       ActionFill,
	"select":     ActionSelect,
	"wait":       ActionWait,
	"screenshot": ActionScreenshot,
	"scroll":     ActionScroll,
	"hover":      ActionHover,
	"press":      ActionPress,
	"expect":     ActionExpect,
	"assert":     ActionExpect,
}

func (a Action) String() string {
	switch a {
	case ActionGoto:
		return "goto"
	case ActionClick:
		return "click"
	case ActionFill:
		return "fill"
	case ActionSelect:
		return "select"
	case ActionWait:
		return "wait"
	case ActionScreenshot:
		return "screenshot"
	case ActionScroll:
		return "scroll"
	case ActionHover:
		return "hover"
	case ActionPress:
		return "press"
	case ActionExpect:
		return "expect"
	default:
		return "unknown"
	}
}

// StepAction is the decoded "action" field of a step. Kind is resolved once
// at decode time; Name keeps what the client sent so unknown kinds can be
// reported verbatim.
type StepAction struct {
	Kind Action
	Name string
}

// NewStepAction resolves a raw action name, case-insensitively.
func NewStepAction(name string) StepAction {
	kind, ok := actionNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		kind = ActionUnknown
	}
	return StepAction{Kind: kind, Name: name}
}

func (a StepAction) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Kind.String()
}

func (a StepAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *StepAction) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("action must be a string: %w", err)
	}
	*a = NewStepAction(name)
	return nil
}

func (a *StepAction) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return fmt.Errorf("action must be a string: %w", err)
	}
	*a = NewStepAction(name)
	return nil
}

// Assertion is the closed set of checks an expect step can perform.
type Assertion int

const (
	AssertionUnknown Assertion = iota
	AssertionToHaveText
	AssertionToBeVisible
	AssertionToHaveURL
	AssertionToHaveTitle
)

var assertionNames = map[string]Assertion{
	"tohavetext":  AssertionToHaveText,
	"tobevisible": AssertionToBeVisible,
	"tohaveurl":   AssertionToHaveURL,
	"tohavetitle": AssertionToHaveTitle,
}

func (a Assertion) String() string {
	switch a {
	case AssertionToHaveText:
		return "toHaveText"
	case AssertionToBeVisible:
		return "toBeVisible"
	case AssertionToHaveURL:
		return "toHaveURL"
	case AssertionToHaveTitle:
		return "toHaveTitle"
	default:
		return "unknown"
	}
}

// StepAssertion is the decoded "assertion" field of an expect step.
type StepAssertion struct {
	Kind Assertion
	Name string
}

func NewStepAssertion(name string) StepAssertion {
	kind, ok := assertionNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		kind = AssertionUnknown
	}
	return StepAssertion{Kind: kind, Name: name}
}

func (a StepAssertion) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Kind.String()
}

func (a StepAssertion) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Name)
}

func (a *StepAssertion) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("assertion must be a string: %w", err)
	}
	*a = NewStepAssertion(name)
	return nil
}

func (a *StepAssertion) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return fmt.Errorf("assertion must be a string: %w", err)
	}
	*a = NewStepAssertion(name)
	return nil
}

// Engine selects the browser engine a run is launched on.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebKit   Engine = "webkit"
)

// ParseEngine reports whether name is one of the supported engines.
func ParseEngine(name string) (Engine, bool) {
	switch Engine(strings.ToLower(strings.TrimSpace(name))) {
	case EngineChromium:
		return EngineChromium, true
	case EngineFirefox:
		return EngineFirefox, true
	case EngineWebKit:
		return EngineWebKit, true
	}
	return "", false
}
