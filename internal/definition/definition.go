// Package definition parses the text format for authoring workflow
// definitions and loads them into the workflow store.
package definition

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/lumabook/automation/internal/workflow"
)

var definitionLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `[\s\t\n\r]+`, Action: nil},
		{Name: "Comment", Pattern: `//[^\n]*`, Action: nil},

		{Name: "String", Pattern: `"[^"]*"`, Action: nil},
		{Name: "Number", Pattern: `[0-9]+`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`, Action: nil},

		{Name: "LBrace", Pattern: `\{`, Action: nil},
		{Name: "RBrace", Pattern: `\}`, Action: nil},
	},
})

// pFile is the root of a parsed definition file. A file may declare several
// workflows.
type pFile struct {
	Workflows []*pWorkflow `parser:"@@*"`
}

// pWorkflow is one parsed workflow declaration.
type pWorkflow struct {
	Name        string   `parser:"'workflow' @String '{'"`
	Trigger     string   `parser:"'trigger' @Ident"`
	Description *string  `parser:"( 'description' @String )?"`
	Active      *string  `parser:"( 'active' @('true' | 'false') )?"`
	Steps       []*pStep `parser:"'steps' '{' @@* '}'"`
	End         struct{} `parser:"'}'"`
}

// pStep is a tagged union over the five step kinds, mirroring the runtime
// StepDefinition shape.
type pStep struct {
	Message   *pMessage   `parser:"  @@"`
	Delay     *pDelay     `parser:"| @@"`
	Condition *pCondition `parser:"| @@"`
	Tag       *pTag       `parser:"| @@"`
	Task      *pTask      `parser:"| @@"`
}

// pMessage is `message email|sms ["id"] { [subject "..."] content "..." }`.
type pMessage struct {
	Channel string   `parser:"'message' @('email' | 'sms')"`
	ID      *string  `parser:"@String?"`
	Open    struct{} `parser:"'{'"`
	Subject *string  `parser:"( 'subject' @String )?"`
	Content string   `parser:"'content' @String"`
	End     struct{} `parser:"'}'"`
}

// pDelay is `delay ["id"] { <amount> minutes|hours|days|weeks }`.
type pDelay struct {
	ID     *string  `parser:"'delay' @String?"`
	Open   struct{} `parser:"'{'"`
	Amount int      `parser:"@Number"`
	Unit   string   `parser:"@('minutes' | 'hours' | 'days' | 'weeks')"`
	End    struct{} `parser:"'}'"`
}

// pCondition is
// `condition ["id"] { field "..." <operator> "..." [else "step-id"] }`.
type pCondition struct {
	ID       *string  `parser:"'condition' @String?"`
	Open     struct{} `parser:"'{'"`
	Field    string   `parser:"'field' @String"`
	Operator string   `parser:"@Ident"`
	Value    string   `parser:"@String"`
	Else     *string  `parser:"( 'else' @String )?"`
	End      struct{} `parser:"'}'"`
}

// pTag is `tag ["id"] { "label" ... }`.
type pTag struct {
	ID   *string  `parser:"'tag' @String?"`
	Open struct{} `parser:"'{'"`
	Tags []string `parser:"@String+"`
	End  struct{} `parser:"'}'"`
}

// pTask is `task ["id"] { [assignee "..."] description "..." }`.
type pTask struct {
	ID          *string  `parser:"'task' @String?"`
	Open        struct{} `parser:"'{'"`
	Assignee    *string  `parser:"( 'assignee' @String )?"`
	Description string   `parser:"'description' @String"`
	End         struct{} `parser:"'}'"`
}

var definitionParser = participle.MustBuild[pFile](
	participle.Lexer(definitionLexer),
	participle.UseLookahead(2),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
)

// Parse parses definition source text into validated workflow definitions.
// Steps without an explicit ID get "step-N", 1-based in declaration order.
func Parse(src string) ([]*workflow.WorkflowDefinition, error) {
	parsed, err := definitionParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	defs := make([]*workflow.WorkflowDefinition, 0, len(parsed.Workflows))
	for _, pw := range parsed.Workflows {
		def, err := convertWorkflow(pw)
		if err != nil {
			return nil, err
		}
		if err := workflow.ValidateDefinition(def); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func convertWorkflow(p *pWorkflow) (*workflow.WorkflowDefinition, error) {
	def := &workflow.WorkflowDefinition{
		ID:       p.Name,
		Name:     p.Name,
		Trigger:  workflow.TriggerType(p.Trigger),
		IsActive: true,
	}
	if p.Description != nil {
		def.Description = *p.Description
	}
	if p.Active != nil {
		active, err := strconv.ParseBool(*p.Active)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: active: %w", p.Name, err)
		}
		def.IsActive = active
	}

	for i, ps := range p.Steps {
		step, err := convertStep(ps, i)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", p.Name, err)
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

func convertStep(p *pStep, index int) (workflow.StepDefinition, error) {
	generated := fmt.Sprintf("step-%d", index+1)
	stepID := func(explicit *string) string {
		if explicit != nil && *explicit != "" {
			return *explicit
		}
		return generated
	}

	switch {
	case p.Message != nil:
		return workflow.StepDefinition{
			ID:   stepID(p.Message.ID),
			Type: workflow.StepMessage,
			Message: &workflow.MessageStep{
				Channel: workflow.MessageChannel(p.Message.Channel),
				Subject: deref(p.Message.Subject),
				Content: p.Message.Content,
			},
		}, nil
	case p.Delay != nil:
		return workflow.StepDefinition{
			ID:   stepID(p.Delay.ID),
			Type: workflow.StepDelay,
			Delay: &workflow.DelayStep{
				Amount: p.Delay.Amount,
				Unit:   workflow.DelayUnit(p.Delay.Unit),
			},
		}, nil
	case p.Condition != nil:
		return workflow.StepDefinition{
			ID:   stepID(p.Condition.ID),
			Type: workflow.StepCondition,
			Condition: &workflow.ConditionStep{
				Field:      p.Condition.Field,
				Operator:   workflow.ConditionOperator(p.Condition.Operator),
				Value:      p.Condition.Value,
				ElseStepID: deref(p.Condition.Else),
			},
		}, nil
	case p.Tag != nil:
		return workflow.StepDefinition{
			ID:   stepID(p.Tag.ID),
			Type: workflow.StepTag,
			Tag:  &workflow.TagStep{Tags: p.Tag.Tags},
		}, nil
	case p.Task != nil:
		return workflow.StepDefinition{
			ID:   stepID(p.Task.ID),
			Type: workflow.StepTask,
			Task: &workflow.TaskStep{
				Description: p.Task.Description,
				Assignee:    deref(p.Task.Assignee),
			},
		}, nil
	}
	return workflow.StepDefinition{}, fmt.Errorf("step %d: empty step", index+1)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
