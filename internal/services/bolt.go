package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vibeworks/code-studio/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements the RevisionStore interface using a BoltDB backend for persistent snapshots of
// the shared document. Each snapshot keeps the full document alongside the prompt that produced it.
type BoltDB struct {
	db *bolt.DB
}

const revisionsBucket = "revisions"

// NewBoltDB creates a new BoltDB instance with the specified file path. It initializes the database
// with required buckets and returns an error if the database cannot be opened or initialized. The
// database file is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(revisionsBucket))
		return err
	})

	return BoltDB{db: db}, err
}

// Revisions retrieves the metadata of all stored snapshots in reverse chronological order. The
// document body is omitted from the listing; use Revision to fetch a full snapshot.
func (b BoltDB) Revisions(context.Context) ([]models.Revision, error) {
	var revisions []models.Revision
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(revisionsBucket))
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var rev models.Revision
			if err := json.Unmarshal(v, &rev); err != nil {
				return fmt.Errorf("failed to unmarshal revision: %w", err)
			}
			rev.Document = ""
			revisions = append(revisions, rev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(revisions)
	return revisions, nil
}

// Revision retrieves a single snapshot, including its document body. It returns a nil error and a
// zero-ID revision when the snapshot does not exist.
func (b BoltDB) Revision(_ context.Context, id string) (models.Revision, error) {
	var rev models.Revision
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(revisionsBucket))
		if bkt == nil {
			return nil
		}

		v := bkt.Get([]byte(id))
		if v == nil {
			return nil
		}

		if err := json.Unmarshal(v, &rev); err != nil {
			return fmt.Errorf("failed to unmarshal revision: %w", err)
		}
		return nil
	})
	return rev, err
}

// AddRevision stores a new snapshot. It generates a unique ID for the snapshot by combining a
// sequence number with the revision's original ID, and returns the new ID or an error if the
// operation fails.
func (b BoltDB) AddRevision(_ context.Context, revision models.Revision) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(revisionsBucket))
		if bkt == nil {
			return nil
		}

		idPrefix, err := bkt.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		// Keys are iterated in byte order, so the sequence is zero-padded to keep
		// the listing chronological past nine entries.
		newID = fmt.Sprintf("%020d-%s", idPrefix, revision.ID)
		revision.ID = newID

		v, err := json.Marshal(revision)
		if err != nil {
			return fmt.Errorf("failed to marshal revision: %w", err)
		}

		return bkt.Put([]byte(newID), v)
	})

	return newID, err
}

// Close releases the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}
