package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumabook/automation/internal/workflow"
)

// Collection names used by the engine.
const (
	CollWorkflows  = "workflows"
	CollExecutions = "executions"
	CollSubjects   = "subjects"
	CollTasks      = "tasks"
	CollDeliveries = "delivery_logs"
)

// MongoStores returns a store bundle backed by the given database.
func MongoStores(db *mongo.Database) *workflow.Stores {
	return &workflow.Stores{
		Workflows:  NewMongoWorkflowRepository(db),
		Executions: NewMongoExecutionRepository(db),
		Subjects:   NewMongoSubjectRepository(db),
		Tasks:      NewMongoTaskRepository(db),
		Deliveries: NewMongoDeliveryRepository(db),
	}
}

// EnsureIndexes creates the indexes the engine's queries depend on. The
// compound status+nextExecutionTime index is what keeps the sweep query
// cheap as the executions collection grows.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	executionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextExecutionTime", Value: 1}}},
		{Keys: bson.D{{Key: "subjectId", Value: 1}, {Key: "startedAt", Value: 1}}},
		{Keys: bson.D{{Key: "workflowId", Value: 1}, {Key: "startedAt", Value: 1}}},
	}
	if _, err := db.Collection(CollExecutions).Indexes().CreateMany(ctx, executionIndexes); err != nil {
		return fmt.Errorf("create execution indexes: %w", err)
	}

	workflowIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trigger", Value: 1}, {Key: "isActive", Value: 1}}},
	}
	if _, err := db.Collection(CollWorkflows).Indexes().CreateMany(ctx, workflowIndexes); err != nil {
		return fmt.Errorf("create workflow indexes: %w", err)
	}

	deliveryIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "executionId", Value: 1}}},
	}
	if _, err := db.Collection(CollDeliveries).Indexes().CreateMany(ctx, deliveryIndexes); err != nil {
		return fmt.Errorf("create delivery indexes: %w", err)
	}

	taskIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignee", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := db.Collection(CollTasks).Indexes().CreateMany(ctx, taskIndexes); err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}

	return nil
}

// MongoWorkflowRepository is the MongoDB-backed WorkflowStore implementation.
type MongoWorkflowRepository struct {
	coll *mongo.Collection
}

// NewMongoWorkflowRepository creates a workflow repository on the workflows
// collection.
func NewMongoWorkflowRepository(db *mongo.Database) *MongoWorkflowRepository {
	return &MongoWorkflowRepository{coll: db.Collection(CollWorkflows)}
}

func (r *MongoWorkflowRepository) Create(ctx context.Context, def *workflow.WorkflowDefinition) error {
	if _, err := r.coll.InsertOne(ctx, def); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, def.ID)
		}
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

func (r *MongoWorkflowRepository) Upsert(ctx context.Context, def *workflow.WorkflowDefinition) error {
	// Stats are owned by the aggregator; an upsert of the definition must
	// not clobber counters already accumulated.
	update := bson.M{
		"$set": bson.M{
			"name":        def.Name,
			"description": def.Description,
			"trigger":     def.Trigger,
			"isActive":    def.IsActive,
			"steps":       def.Steps,
			"updatedAt":   time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"stats":     workflow.WorkflowStats{},
			"createdAt": time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": def.ID}, update, opts); err != nil {
		return fmt.Errorf("upsert workflow: %w", err)
	}
	return nil
}

func (r *MongoWorkflowRepository) Get(ctx context.Context, id string) (*workflow.WorkflowDefinition, error) {
	var def workflow.WorkflowDefinition
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&def)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find workflow: %w", err)
	}
	return &def, nil
}

func (r *MongoWorkflowRepository) List(ctx context.Context) ([]workflow.WorkflowDefinition, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoWorkflowRepository) ListActiveByTrigger(ctx context.Context, trigger workflow.TriggerType) ([]workflow.WorkflowDefinition, error) {
	return r.find(ctx, bson.M{"trigger": trigger, "isActive": true})
}

func (r *MongoWorkflowRepository) find(ctx context.Context, filter bson.M) ([]workflow.WorkflowDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find workflows: %w", err)
	}
	defer cursor.Close(ctx)

	var defs []workflow.WorkflowDefinition
	if err := cursor.All(ctx, &defs); err != nil {
		return nil, fmt.Errorf("decode workflows: %w", err)
	}
	return defs, nil
}

func (r *MongoWorkflowRepository) SetActive(ctx context.Context, id string, active bool) error {
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now().UTC()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set workflow active: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoWorkflowRepository) ApplyEnrolled(ctx context.Context, id string) error {
	update := bson.M{
		"$inc": bson.M{"stats.totalEnrolled": 1, "stats.active": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("apply enrolled: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoWorkflowRepository) ApplyCompleted(ctx context.Context, id string) error {
	update := bson.M{
		"$inc": bson.M{"stats.completed": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("apply completed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return r.decrementActive(ctx, id)
}

func (r *MongoWorkflowRepository) ApplyCancelled(ctx context.Context, id string) error {
	return r.decrementActive(ctx, id)
}

// decrementActive decrements stats.active with a guard filter so concurrent
// completions can never push the counter below zero.
func (r *MongoWorkflowRepository) decrementActive(ctx context.Context, id string) error {
	filter := bson.M{"_id": id, "stats.active": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"stats.active": -1}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("decrement active: %w", err)
	}
	return nil
}

// MongoExecutionRepository is the MongoDB-backed workflow.ExecutionStore.
type MongoExecutionRepository struct {
	coll *mongo.Collection
}

// NewMongoExecutionRepository creates an execution repository on the
// executions collection.
func NewMongoExecutionRepository(db *mongo.Database) *MongoExecutionRepository {
	return &MongoExecutionRepository{coll: db.Collection(CollExecutions)}
}

func (r *MongoExecutionRepository) Create(ctx context.Context, exec *workflow.Execution) error {
	if _, err := r.coll.InsertOne(ctx, exec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, exec.ID)
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

func (r *MongoExecutionRepository) Get(ctx context.Context, id string) (*workflow.Execution, error) {
	var exec workflow.Execution
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&exec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find execution: %w", err)
	}
	return &exec, nil
}

func (r *MongoExecutionRepository) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]workflow.Execution, error) {
	return r.find(ctx, bson.M{"subjectId": subjectID}, limit, offset)
}

func (r *MongoExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]workflow.Execution, error) {
	return r.find(ctx, bson.M{"workflowId": workflowID}, limit, offset)
}

func (r *MongoExecutionRepository) ListByStatus(ctx context.Context, status workflow.ExecutionStatus, limit, offset int) ([]workflow.Execution, error) {
	return r.find(ctx, bson.M{"status": status}, limit, offset)
}

func (r *MongoExecutionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]workflow.Execution, error) {
	filter := bson.M{
		"status":            workflow.StatusActive,
		"nextExecutionTime": bson.M{"$lte": now},
	}
	return r.find(ctx, filter, limit, 0)
}

func (r *MongoExecutionRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]workflow.Execution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find executions: %w", err)
	}
	defer cursor.Close(ctx)

	var execs []workflow.Execution
	if err := cursor.All(ctx, &execs); err != nil {
		return nil, fmt.Errorf("decode executions: %w", err)
	}
	return execs, nil
}

func (r *MongoExecutionRepository) Claim(ctx context.Context, id string, version int64) error {
	filter := bson.M{"_id": id, "version": version}
	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("claim execution: %w", err)
	}
	if result.MatchedCount == 0 {
		if exists, existsErr := r.exists(ctx, id); existsErr == nil && !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *MongoExecutionRepository) Save(ctx context.Context, exec *workflow.Execution) error {
	filter := bson.M{"_id": exec.ID, "version": exec.Version}

	next := *exec
	next.Version = exec.Version + 1
	next.UpdatedAt = time.Now().UTC()

	result, err := r.coll.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	if result.MatchedCount == 0 {
		if exists, existsErr := r.exists(ctx, exec.ID); existsErr == nil && !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	exec.Version = next.Version
	exec.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *MongoExecutionRepository) exists(ctx context.Context, id string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MongoSubjectRepository is the MongoDB-backed workflow.SubjectStore.
type MongoSubjectRepository struct {
	coll *mongo.Collection
}

// NewMongoSubjectRepository creates a subject repository on the subjects
// collection.
func NewMongoSubjectRepository(db *mongo.Database) *MongoSubjectRepository {
	return &MongoSubjectRepository{coll: db.Collection(CollSubjects)}
}

func (r *MongoSubjectRepository) Get(ctx context.Context, id string) (*workflow.Subject, error) {
	var subject workflow.Subject
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

func (r *MongoSubjectRepository) Put(ctx context.Context, subject *workflow.Subject) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": subject.ID}, subject, opts); err != nil {
		return fmt.Errorf("put subject: %w", err)
	}
	return nil
}

func (r *MongoSubjectRepository) AddTags(ctx context.Context, id string, tags []string) error {
	update := bson.M{
		"$addToSet": bson.M{"tags": bson.M{"$each": tags}},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("add tags: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoTaskRepository is the MongoDB-backed workflow.TaskStore.
type MongoTaskRepository struct {
	coll *mongo.Collection
}

// NewMongoTaskRepository creates a task repository on the tasks collection.
func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(CollTasks)}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *workflow.Task) error {
	if _, err := r.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) ListByExecution(ctx context.Context, executionID string) ([]workflow.Task, error) {
	return r.find(ctx, bson.M{"executionId": executionID})
}

func (r *MongoTaskRepository) ListByAssignee(ctx context.Context, assignee string) ([]workflow.Task, error) {
	return r.find(ctx, bson.M{"assignee": assignee})
}

func (r *MongoTaskRepository) find(ctx context.Context, filter bson.M) ([]workflow.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []workflow.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

// MongoDeliveryRepository is the MongoDB-backed workflow.DeliveryStore.
type MongoDeliveryRepository struct {
	coll *mongo.Collection
}

// NewMongoDeliveryRepository creates a delivery log repository on the
// delivery_logs collection.
func NewMongoDeliveryRepository(db *mongo.Database) *MongoDeliveryRepository {
	return &MongoDeliveryRepository{coll: db.Collection(CollDeliveries)}
}

func (r *MongoDeliveryRepository) Create(ctx context.Context, entry *workflow.DeliveryLog) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

func (r *MongoDeliveryRepository) ListByExecution(ctx context.Context, executionID string) ([]workflow.DeliveryLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"executionId": executionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find delivery logs: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []workflow.DeliveryLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode delivery logs: %w", err)
	}
	return entries, nil
}
