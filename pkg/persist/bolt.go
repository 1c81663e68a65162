package persist

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltOpenTimeout = 5 * time.Second

var sketchBucket = []byte("sketches")

// BoltStore keeps sketches in a single bbolt database file.
type BoltStore struct {
	db    *bolt.DB
	codec Codec
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string, codec Codec) (*BoltStore, error) {
	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(sketchBucket)

		return bucketErr
	})
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}

	return &BoltStore{db: db, codec: codec}, nil
}

// Put implements Store.
func (bs *BoltStore) Put(_ context.Context, name string, data []byte) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	encoded, err := Compress(bs.codec, data)
	if err != nil {
		return err
	}

	err = bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sketchBucket).Put([]byte(name), encoded)
	})
	if err != nil {
		return fmt.Errorf("bolt put %s: %w", name, err)
	}

	return nil
}

// Get implements Store.
func (bs *BoltStore) Get(_ context.Context, name string) ([]byte, error) {
	err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	var encoded []byte

	err = bs.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(sketchBucket).Get([]byte(name))
		if value == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		// Values are only valid inside the transaction.
		encoded = append([]byte(nil), value...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Decompress(bs.codec, encoded)
}

// List implements Store.
func (bs *BoltStore) List(_ context.Context) ([]string, error) {
	var names []string

	err := bs.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sketchBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt list: %w", err)
	}

	return names, nil
}

// Delete implements Store.
func (bs *BoltStore) Delete(_ context.Context, name string) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	err = bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sketchBucket).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("bolt delete %s: %w", name, err)
	}

	return nil
}

// Close implements Store.
func (bs *BoltStore) Close() error {
	err := bs.db.Close()
	if err != nil {
		return fmt.Errorf("close bolt store: %w", err)
	}

	return nil
}
