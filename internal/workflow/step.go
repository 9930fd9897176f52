package workflow

import (
	"fmt"
	"time"
)

// StepType identifies the kind of a step. The set is closed: the engine's
// dispatch switch handles every kind and rejects anything else.
type StepType string

const (
	StepMessage   StepType = "message"
	StepDelay     StepType = "delay"
	StepCondition StepType = "condition"
	StepTag       StepType = "tag"
	StepTask      StepType = "task"
)

// MessageChannel selects the delivery channel of a message step.
type MessageChannel string

const (
	ChannelEmail MessageChannel = "email"
	ChannelSMS   MessageChannel = "sms"
)

// ConditionOperator is the comparison applied by a condition step.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
)

// DelayUnit is the time unit of a delay step.
type DelayUnit string

const (
	UnitMinutes DelayUnit = "minutes"
	UnitHours   DelayUnit = "hours"
	UnitDays    DelayUnit = "days"
	UnitWeeks   DelayUnit = "weeks"
)

// delayUnitSeconds is the unit conversion table.
var delayUnitSeconds = map[DelayUnit]int64{
	UnitMinutes: 60,
	UnitHours:   3600,
	UnitDays:    86400,
	UnitWeeks:   604800,
}

// StepDefinition is a tagged variant over the five step kinds. Exactly one
// config pointer matching Type must be set; Validate enforces this so a
// malformed definition is rejected before any execution references it.
type StepDefinition struct {
	ID        string         `bson:"id"   json:"id"`
	Type      StepType       `bson:"type" json:"type"`
	Message   *MessageStep   `bson:"message,omitempty"   json:"message,omitempty"`
	Delay     *DelayStep     `bson:"delay,omitempty"     json:"delay,omitempty"`
	Condition *ConditionStep `bson:"condition,omitempty" json:"condition,omitempty"`
	Tag       *TagStep       `bson:"tag,omitempty"       json:"tag,omitempty"`
	Task      *TaskStep      `bson:"task,omitempty"      json:"task,omitempty"`
}

// MessageStep sends an email or SMS. Subject is ignored for SMS. Content is
// passed through verbatim; template interpolation is an external concern.
type MessageStep struct {
	Channel MessageChannel `bson:"channel" json:"channel"`
	Subject string         `bson:"subject,omitempty" json:"subject,omitempty"`
	Content string         `bson:"content" json:"content"`
}

// DelayStep suspends the execution for Amount of Unit.
type DelayStep struct {
	Amount int       `bson:"amount" json:"amount"`
	Unit   DelayUnit `bson:"unit"   json:"unit"`
}

// Duration returns the wall-clock duration of the delay.
func (d *DelayStep) Duration() time.Duration {
	return time.Duration(int64(d.Amount)*delayUnitSeconds[d.Unit]) * time.Second
}

// ConditionStep gates progression on a subject attribute. When the comparison
// is false the execution either jumps to ElseStepID or, with no else target,
// completes with a condition_not_met reason. It never stalls silently.
type ConditionStep struct {
	Field      string            `bson:"field"    json:"field"`
	Operator   ConditionOperator `bson:"operator" json:"operator"`
	Value      string            `bson:"value"    json:"value"`
	ElseStepID string            `bson:"elseStepId,omitempty" json:"else_step_id,omitempty"`
}

// TagStep merges labels into the subject's tag set.
type TagStep struct {
	Tags []string `bson:"tags" json:"tags"`
}

// TaskStep creates a task record for a human.
type TaskStep struct {
	Description string `bson:"description" json:"description"`
	Assignee    string `bson:"assignee"    json:"assignee"`
}

// Validate checks that the step is well formed: a known type, exactly one
// config set, and the config matching the type.
func (s *StepDefinition) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("step: id is required")
	}

	set := 0
	for _, present := range []bool{
		s.Message != nil, s.Delay != nil, s.Condition != nil, s.Tag != nil, s.Task != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("step %s: exactly one config must be set, found %d", s.ID, set)
	}

	switch s.Type {
	case StepMessage:
		if s.Message == nil {
			return fmt.Errorf("step %s: type message requires message config", s.ID)
		}
		if s.Message.Channel != ChannelEmail && s.Message.Channel != ChannelSMS {
			return fmt.Errorf("step %s: unknown channel %q", s.ID, s.Message.Channel)
		}
		if s.Message.Content == "" {
			return fmt.Errorf("step %s: message content is required", s.ID)
		}
	case StepDelay:
		if s.Delay == nil {
			return fmt.Errorf("step %s: type delay requires delay config", s.ID)
		}
		if s.Delay.Amount <= 0 {
			return fmt.Errorf("step %s: delay amount must be positive", s.ID)
		}
		if _, ok := delayUnitSeconds[s.Delay.Unit]; !ok {
			return fmt.Errorf("step %s: unknown delay unit %q", s.ID, s.Delay.Unit)
		}
	case StepCondition:
		if s.Condition == nil {
			return fmt.Errorf("step %s: type condition requires condition config", s.ID)
		}
		if s.Condition.Field == "" {
			return fmt.Errorf("step %s: condition field is required", s.ID)
		}
		switch s.Condition.Operator {
		case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan:
		default:
			return fmt.Errorf("step %s: unknown operator %q", s.ID, s.Condition.Operator)
		}
	case StepTag:
		if s.Tag == nil {
			return fmt.Errorf("step %s: type tag requires tag config", s.ID)
		}
		if len(s.Tag.Tags) == 0 {
			return fmt.Errorf("step %s: tag step requires at least one tag", s.ID)
		}
	case StepTask:
		if s.Task == nil {
			return fmt.Errorf("step %s: type task requires task config", s.ID)
		}
		if s.Task.Description == "" {
			return fmt.Errorf("step %s: task description is required", s.ID)
		}
	default:
		return fmt.Errorf("step %s: unknown step type %q", s.ID, s.Type)
	}

	return nil
}

// ValidateDefinition checks a whole definition: metadata, trigger, and every
// step, including that condition else targets reference existing steps.
func ValidateDefinition(def *WorkflowDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("workflow: id is required")
	}
	if def.Name == "" {
		return fmt.Errorf("workflow %s: name is required", def.ID)
	}
	if !ValidTrigger(def.Trigger) {
		return fmt.Errorf("workflow %s: unknown trigger %q", def.ID, def.Trigger)
	}

	seen := make(map[string]bool, len(def.Steps))
	for i := range def.Steps {
		step := &def.Steps[i]
		if err := step.Validate(); err != nil {
			return fmt.Errorf("workflow %s: %w", def.ID, err)
		}
		if seen[step.ID] {
			return fmt.Errorf("workflow %s: duplicate step id %q", def.ID, step.ID)
		}
		seen[step.ID] = true
	}

	for i := range def.Steps {
		cond := def.Steps[i].Condition
		if cond == nil || cond.ElseStepID == "" {
			continue
		}
		if !seen[cond.ElseStepID] {
			return fmt.Errorf("workflow %s: step %s: else target %q does not exist",
				def.ID, def.Steps[i].ID, cond.ElseStepID)
		}
	}

	return nil
}
