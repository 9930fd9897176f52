package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lumabook/automation/internal/workflow"
)

// MemoryStores returns a store bundle backed entirely by memory. Used by
// unit tests and the one-shot sweep command's dry-run mode.
func MemoryStores() *workflow.Stores {
	return &workflow.Stores{
		Workflows:  NewMemoryWorkflowRepository(),
		Executions: NewMemoryExecutionRepository(),
		Subjects:   NewMemorySubjectRepository(),
		Tasks:      NewMemoryTaskRepository(),
		Deliveries: NewMemoryDeliveryRepository(),
	}
}

// MemoryWorkflowRepository is an in-memory WorkflowStore implementation.
type MemoryWorkflowRepository struct {
	mu   sync.RWMutex
	defs map[string]*workflow.WorkflowDefinition
}

// NewMemoryWorkflowRepository creates an empty in-memory workflow store.
func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{defs: make(map[string]*workflow.WorkflowDefinition)}
}

func (r *MemoryWorkflowRepository) Create(_ context.Context, def *workflow.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.ID]; ok {
		return ErrDuplicateID
	}
	r.defs[def.ID] = copyDefinition(def)
	return nil
}

func (r *MemoryWorkflowRepository) Upsert(_ context.Context, def *workflow.WorkflowDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.defs[def.ID]; ok {
		// Stats are owned by the aggregator; an upsert must not reset them.
		clone := copyDefinition(def)
		clone.Stats = existing.Stats
		r.defs[def.ID] = clone
		return nil
	}
	r.defs[def.ID] = copyDefinition(def)
	return nil
}

func (r *MemoryWorkflowRepository) Get(_ context.Context, id string) (*workflow.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDefinition(def), nil
}

func (r *MemoryWorkflowRepository) List(_ context.Context) ([]workflow.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]workflow.WorkflowDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, *copyDefinition(def))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryWorkflowRepository) ListActiveByTrigger(_ context.Context, trigger workflow.TriggerType) ([]workflow.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []workflow.WorkflowDefinition
	for _, def := range r.defs {
		if def.IsActive && def.Trigger == trigger {
			out = append(out, *copyDefinition(def))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryWorkflowRepository) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[id]
	if !ok {
		return ErrNotFound
	}
	def.IsActive = active
	def.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryWorkflowRepository) ApplyEnrolled(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[id]
	if !ok {
		return ErrNotFound
	}
	def.Stats.TotalEnrolled++
	def.Stats.Active++
	return nil
}

func (r *MemoryWorkflowRepository) ApplyCompleted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[id]
	if !ok {
		return ErrNotFound
	}
	def.Stats.Completed++
	if def.Stats.Active > 0 {
		def.Stats.Active--
	}
	return nil
}

func (r *MemoryWorkflowRepository) ApplyCancelled(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[id]
	if !ok {
		return ErrNotFound
	}
	if def.Stats.Active > 0 {
		def.Stats.Active--
	}
	return nil
}

// MemoryExecutionRepository is an in-memory workflow.ExecutionStore with the same
// version-CAS semantics as the MongoDB implementation.
type MemoryExecutionRepository struct {
	mu    sync.RWMutex
	execs map[string]*workflow.Execution
}

// NewMemoryExecutionRepository creates an empty in-memory execution store.
func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{execs: make(map[string]*workflow.Execution)}
}

func (r *MemoryExecutionRepository) Create(_ context.Context, exec *workflow.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.execs[exec.ID]; ok {
		return ErrDuplicateID
	}
	r.execs[exec.ID] = copyExecution(exec)
	return nil
}

func (r *MemoryExecutionRepository) Get(_ context.Context, id string) (*workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.execs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyExecution(exec), nil
}

func (r *MemoryExecutionRepository) list(match func(*workflow.Execution) bool, limit, offset int) []workflow.Execution {
	var all []*workflow.Execution
	for _, exec := range r.execs {
		if match(exec) {
			all = append(all, exec)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.Before(all[j].StartedAt) })

	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]workflow.Execution, len(all))
	for i, exec := range all {
		out[i] = *copyExecution(exec)
	}
	return out
}

func (r *MemoryExecutionRepository) ListBySubject(_ context.Context, subjectID string, limit, offset int) ([]workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(e *workflow.Execution) bool { return e.SubjectID == subjectID }, limit, offset), nil
}

func (r *MemoryExecutionRepository) ListByWorkflow(_ context.Context, workflowID string, limit, offset int) ([]workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(e *workflow.Execution) bool { return e.WorkflowID == workflowID }, limit, offset), nil
}

func (r *MemoryExecutionRepository) ListByStatus(_ context.Context, status workflow.ExecutionStatus, limit, offset int) ([]workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(e *workflow.Execution) bool { return e.Status == status }, limit, offset), nil
}

func (r *MemoryExecutionRepository) ListDue(_ context.Context, now time.Time, limit int) ([]workflow.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(e *workflow.Execution) bool {
		return e.Status == workflow.StatusActive &&
			e.NextExecutionTime != nil &&
			!e.NextExecutionTime.After(now)
	}, limit, 0), nil
}

func (r *MemoryExecutionRepository) Claim(_ context.Context, id string, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec, ok := r.execs[id]
	if !ok {
		return ErrNotFound
	}
	if exec.Version != version {
		return ErrVersionConflict
	}
	exec.Version++
	exec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryExecutionRepository) Save(_ context.Context, exec *workflow.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.execs[exec.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != exec.Version {
		return ErrVersionConflict
	}
	exec.Version++
	exec.UpdatedAt = time.Now().UTC()
	r.execs[exec.ID] = copyExecution(exec)
	return nil
}

// MemorySubjectRepository is an in-memory workflow.SubjectStore.
type MemorySubjectRepository struct {
	mu       sync.RWMutex
	subjects map[string]*workflow.Subject
}

// NewMemorySubjectRepository creates an empty in-memory subject store.
func NewMemorySubjectRepository() *MemorySubjectRepository {
	return &MemorySubjectRepository{subjects: make(map[string]*workflow.Subject)}
}

func (r *MemorySubjectRepository) Get(_ context.Context, id string) (*workflow.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subject, ok := r.subjects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubject(subject), nil
}

func (r *MemorySubjectRepository) Put(_ context.Context, subject *workflow.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[subject.ID] = copySubject(subject)
	return nil
}

func (r *MemorySubjectRepository) AddTags(_ context.Context, id string, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	subject, ok := r.subjects[id]
	if !ok {
		return ErrNotFound
	}
	existing := make(map[string]bool, len(subject.Tags))
	for _, tag := range subject.Tags {
		existing[tag] = true
	}
	for _, tag := range tags {
		if !existing[tag] {
			subject.Tags = append(subject.Tags, tag)
			existing[tag] = true
		}
	}
	subject.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryTaskRepository is an in-memory workflow.TaskStore.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks []workflow.Task
}

// NewMemoryTaskRepository creates an empty in-memory task store.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{}
}

func (r *MemoryTaskRepository) Create(_ context.Context, task *workflow.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, *task)
	return nil
}

func (r *MemoryTaskRepository) ListByExecution(_ context.Context, executionID string) ([]workflow.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []workflow.Task
	for _, task := range r.tasks {
		if task.ExecutionID == executionID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *MemoryTaskRepository) ListByAssignee(_ context.Context, assignee string) ([]workflow.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []workflow.Task
	for _, task := range r.tasks {
		if task.Assignee == assignee {
			out = append(out, task)
		}
	}
	return out, nil
}

// MemoryDeliveryRepository is an in-memory workflow.DeliveryStore.
type MemoryDeliveryRepository struct {
	mu      sync.RWMutex
	entries []workflow.DeliveryLog
}

// NewMemoryDeliveryRepository creates an empty in-memory delivery log store.
func NewMemoryDeliveryRepository() *MemoryDeliveryRepository {
	return &MemoryDeliveryRepository{}
}

func (r *MemoryDeliveryRepository) Create(_ context.Context, entry *workflow.DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryDeliveryRepository) ListByExecution(_ context.Context, executionID string) ([]workflow.DeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []workflow.DeliveryLog
	for _, entry := range r.entries {
		if entry.ExecutionID == executionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// copy helpers keep stored records isolated from caller mutation.

func copyDefinition(def *workflow.WorkflowDefinition) *workflow.WorkflowDefinition {
	clone := *def
	clone.Steps = make([]workflow.StepDefinition, len(def.Steps))
	copy(clone.Steps, def.Steps)
	return &clone
}

func copyExecution(exec *workflow.Execution) *workflow.Execution {
	clone := *exec
	if exec.CompletedAt != nil {
		t := *exec.CompletedAt
		clone.CompletedAt = &t
	}
	if exec.NextExecutionTime != nil {
		t := *exec.NextExecutionTime
		clone.NextExecutionTime = &t
	}
	clone.ExecutionLog = make([]workflow.LogEntry, len(exec.ExecutionLog))
	copy(clone.ExecutionLog, exec.ExecutionLog)
	return &clone
}

func copySubject(subject *workflow.Subject) *workflow.Subject {
	clone := *subject
	clone.Tags = append([]string(nil), subject.Tags...)
	clone.Attributes = make(map[string]string, len(subject.Attributes))
	for k, v := range subject.Attributes {
		clone.Attributes[k] = v
	}
	return &clone
}
