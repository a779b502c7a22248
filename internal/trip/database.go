package trip

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

const bucketName = "trips"

// DB defines the interface for trip persistence
type DB interface {
	// CreateTrip inserts trip and sets its ID
	CreateTrip(ctx context.Context, trip *Trip) error

	// GetTrip retrieves a trip by ID
	GetTrip(ctx context.Context, id uint64) (*Trip, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// CreateTrip assigns the next sequence number as the trip ID
func (b *BoltDB) CreateTrip(_ context.Context, trip *Trip) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		id, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating trip id: %w", err)
		}

		// bolt rolls the sequence back with the transaction on failure
		stored := *trip
		stored.ID = id
		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshaling trip: %w", err)
		}
		if err := bucket.Put(itob(id), data); err != nil {
			return err
		}
		trip.ID = id
		return nil
	})
}

// GetTrip retrieves a trip by ID
func (b *BoltDB) GetTrip(_ context.Context, id uint64) (*Trip, error) {
	var trip *Trip
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get(itob(id))
		if data == nil {
			return fmt.Errorf("trip %d: %w", id, apperr.ErrNotFound)
		}
		return json.Unmarshal(data, &trip)
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// itob encodes id big-endian so keys sort numerically.
func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}
