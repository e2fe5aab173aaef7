package queue

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const colTasks = "tasks"

var _ Queue = (*MongoQueue)(nil)

// MongoQueue stores tasks in a MongoDB collection. Claims use
// FindOneAndUpdate so a task is delivered to exactly one local worker.
type MongoQueue struct {
	col *mongod.Collection
}

// NewMongoQueue creates a queue on the given database.
func NewMongoQueue(db *mongod.Database) *MongoQueue {
	return &MongoQueue{col: db.Collection(colTasks)}
}

// Migrate creates the index backing the dequeue filter.
func (q *MongoQueue) Migrate(ctx context.Context) error {
	idx := mongod.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "created_at", Value: 1}}}
	if _, err := q.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("migrate tasks index: %w", err)
	}
	return nil
}

func (q *MongoQueue) Enqueue(ctx context.Context, t *Task) error {
	if _, err := q.col.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("%w: enqueue %s: %v", ErrUnavailable, t.Name, err)
	}
	return nil
}

func (q *MongoQueue) Dequeue(ctx context.Context, limit int) ([]*Task, error) {
	now := time.Now().UTC()
	tasks := make([]*Task, 0, limit)

	for i := 0; i < limit; i++ {
		filter := bson.M{"state": string(StatePending)}
		update := bson.M{"$set": bson.M{
			"state":      string(StateRunning),
			"updated_at": now,
		}}
		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: "created_at", Value: 1}})

		var t Task
		err := q.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&t)
		if err != nil {
			if err == mongod.ErrNoDocuments {
				break
			}
			return nil, fmt.Errorf("dequeue: %w", err)
		}
		tasks = append(tasks, &t)
	}

	return tasks, nil
}

func (q *MongoQueue) Complete(ctx context.Context, id string) error {
	return q.setState(ctx, id, StateDone, "")
}

func (q *MongoQueue) Fail(ctx context.Context, id, cause string) error {
	return q.setState(ctx, id, StateFailed, cause)
}

func (q *MongoQueue) setState(ctx context.Context, id string, state State, cause string) error {
	set := bson.M{
		"state":      string(state),
		"updated_at": time.Now().UTC(),
	}
	if cause != "" {
		set["last_error"] = cause
	}

	res, err := q.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("set task state: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}
