// Package mongo implements the record store on MongoDB. Every mutation is an
// atomic single-document update; terminal transitions filter on non-terminal
// status so they are written exactly once.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/store"
)

const (
	colUploads = "uploads"
	colNotes   = "notes"
)

var _ store.Store = (*Store)(nil)

// Store is the MongoDB record store. The caller owns the client lifecycle;
// Store never disconnects it.
type Store struct {
	db *mongod.Database
}

// New creates a Store on the given database.
func New(db *mongod.Database) *Store {
	return &Store{db: db}
}

// Migrate creates the indexes used by status polling and history listing.
func (s *Store) Migrate(ctx context.Context) error {
	uploadIdx := []mongod.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.db.Collection(colUploads).Indexes().CreateMany(ctx, uploadIdx); err != nil {
		return fmt.Errorf("migrate uploads indexes: %w", err)
	}

	noteIdx := []mongod.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "upload_id", Value: 1}}},
	}
	if _, err := s.db.Collection(colNotes).Indexes().CreateMany(ctx, noteIdx); err != nil {
		return fmt.Errorf("migrate notes indexes: %w", err)
	}

	return nil
}

func (s *Store) InsertUpload(ctx context.Context, up *models.Upload) error {
	if up.CreatedAt.IsZero() {
		up.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.Collection(colUploads).InsertOne(ctx, up); err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (s *Store) FindUpload(ctx context.Context, id string) (*models.Upload, error) {
	var up models.Upload
	err := s.db.Collection(colUploads).FindOne(ctx, bson.M{"_id": id}).Decode(&up)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, store.ErrUploadNotFound
		}
		return nil, fmt.Errorf("find upload: %w", err)
	}
	return &up, nil
}

// SetProgress updates status and progress unless the upload already reached a
// terminal state. A zero match on a terminal document is not an error.
func (s *Store) SetProgress(ctx context.Context, id string, stage models.Stage, percent int) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$nin": []string{string(models.StageDone), string(models.StageFailed)}},
	}
	update := bson.M{"$set": bson.M{
		"status":   string(stage),
		"progress": models.Progress{Stage: stage, Percent: percent},
	}}

	res, err := s.db.Collection(colUploads).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either unknown id or already terminal; confirm the former.
		if _, findErr := s.FindUpload(ctx, id); findErr != nil {
			return findErr
		}
	}
	return nil
}

func (s *Store) MarkDone(ctx context.Context, id, noteID string) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$nin": []string{string(models.StageDone), string(models.StageFailed)}},
	}
	update := bson.M{"$set": bson.M{
		"status":   string(models.StageDone),
		"note_id":  noteID,
		"progress": models.Progress{Stage: models.StageDone, Percent: 100},
	}}

	res, err := s.db.Collection(colUploads).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrUploadNotFound
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id, cause string) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$nin": []string{string(models.StageDone), string(models.StageFailed)}},
	}
	update := bson.M{"$set": bson.M{
		"status": string(models.StageFailed),
		"error":  cause,
	}}

	res, err := s.db.Collection(colUploads).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrUploadNotFound
	}
	return nil
}

func (s *Store) InsertNote(ctx context.Context, n *models.Note) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.Collection(colNotes).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *Store) FindNote(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	err := s.db.Collection(colNotes).FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, store.ErrNoteNotFound
		}
		return nil, fmt.Errorf("find note: %w", err)
	}
	return &n, nil
}

func (s *Store) ListNotesByUser(ctx context.Context, userID string, limit int) ([]*models.Note, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(colNotes).Find(ctx, bson.M{"user_id": userID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []*models.Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("list notes decode: %w", err)
	}
	return notes, nil
}
