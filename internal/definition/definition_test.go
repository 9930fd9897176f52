package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumabook/automation/internal/workflow"
	"github.com/lumabook/automation/internal/workflow/repository"
)

const welcomeSequence = `
// Welcome drip for new clients.
workflow "welcome-sequence" {
  trigger new_subject
  description "Welcome drip for new clients"
  active true
  steps {
    tag { "lead" "new-client" }
    delay { 1 days }
    message email "welcome-mail" {
      subject "Hi"
      content "Welcome aboard"
    }
    condition { field "status" equals "vip" else "vip-care" }
    task { assignee "frontdesk" description "Call to check in" }
    task "vip-care" { assignee "manager" description "Personal welcome call" }
  }
}
`

func TestParseWelcomeSequence(t *testing.T) {
	defs, err := Parse(welcomeSequence)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "welcome-sequence", def.ID)
	assert.Equal(t, workflow.TriggerNewSubject, def.Trigger)
	assert.Equal(t, "Welcome drip for new clients", def.Description)
	assert.True(t, def.IsActive)
	require.Len(t, def.Steps, 6)

	assert.Equal(t, workflow.StepTag, def.Steps[0].Type)
	assert.Equal(t, "step-1", def.Steps[0].ID)
	assert.Equal(t, []string{"lead", "new-client"}, def.Steps[0].Tag.Tags)

	assert.Equal(t, workflow.StepDelay, def.Steps[1].Type)
	assert.Equal(t, 1, def.Steps[1].Delay.Amount)
	assert.Equal(t, workflow.UnitDays, def.Steps[1].Delay.Unit)

	assert.Equal(t, workflow.StepMessage, def.Steps[2].Type)
	assert.Equal(t, "welcome-mail", def.Steps[2].ID)
	assert.Equal(t, workflow.ChannelEmail, def.Steps[2].Message.Channel)
	assert.Equal(t, "Hi", def.Steps[2].Message.Subject)

	assert.Equal(t, workflow.StepCondition, def.Steps[3].Type)
	assert.Equal(t, workflow.OpEquals, def.Steps[3].Condition.Operator)
	assert.Equal(t, "vip-care", def.Steps[3].Condition.ElseStepID)

	assert.Equal(t, workflow.StepTask, def.Steps[4].Type)
	assert.Equal(t, "vip-care", def.Steps[5].ID)
	assert.Equal(t, "manager", def.Steps[5].Task.Assignee)
}

func TestParseMultipleWorkflows(t *testing.T) {
	src := `
workflow "a" {
  trigger manual
  steps {
    tag { "x" }
  }
}
workflow "b" {
  trigger no_show
  active false
  steps {
    message sms { content "We missed you" }
  }
}
`
	defs, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].ID)
	assert.False(t, defs[1].IsActive)
	assert.Equal(t, workflow.ChannelSMS, defs[1].Steps[0].Message.Channel)
}

func TestParseRejectsUnknownTrigger(t *testing.T) {
	_, err := Parse(`
workflow "bad" {
  trigger full_moon
  steps {
    tag { "x" }
  }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trigger")
}

func TestParseRejectsDanglingElse(t *testing.T) {
	_, err := Parse(`
workflow "bad" {
  trigger manual
  steps {
    condition { field "plan" equals "vip" else "nowhere" }
  }
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParseRejectsSyntaxError(t *testing.T) {
	_, err := Parse(`workflow "broken" { trigger manual`)
	assert.Error(t, err)
}

func TestLoaderLoadDirUpserts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.workflow"), []byte(welcomeSequence), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	stores := repository.MemoryStores()
	loader := NewLoader(stores.Workflows, nil)

	defs, err := loader.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	stored, err := stores.Workflows.Get(context.Background(), "welcome-sequence")
	require.NoError(t, err)
	assert.Len(t, stored.Steps, 6)

	// Reloading preserves stats.
	require.NoError(t, stores.Workflows.ApplyEnrolled(context.Background(), "welcome-sequence"))
	_, err = loader.LoadDir(context.Background(), dir)
	require.NoError(t, err)

	stored, err = stores.Workflows.Get(context.Background(), "welcome-sequence")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Stats.TotalEnrolled)
}
