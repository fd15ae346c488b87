package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/edeas123/aws-terraform-casper/types"
)

// Bucket names in bbolt
var (
	bucketRevisions = []byte("revisions")
	bucketMeta      = []byte("meta")
	keyCurrentRev   = []byte("current_revision")
)

var errNoRevisions = errors.New("no revisions")

// Revision is one saved inventory.
type Revision struct {
	Number    int64           `json:"revision"`
	SavedAt   time.Time       `json:"saved_at"`
	Groups    int             `json:"groups"`
	Resources int             `json:"resources"`
	Inventory types.Inventory `json:"inventory"`
}

// BoltStore keeps every saved inventory as a numbered revision in a bbolt
// database. The database is opened per call so no lock is held between
// commands.
type BoltStore struct {
	path string
	now  func() time.Time
}

// NewBoltStore creates a store backed by the database at path.
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path, now: time.Now}
}

// Location implements Store.
func (s *BoltStore) Location() string { return s.path }

func (s *BoltStore) open(readOnly bool) (*bbolt.DB, error) {
	if readOnly {
		if _, err := os.Stat(s.path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrStateNotFound, s.path)
			}
			return nil, fmt.Errorf("stat state %s: %w", s.path, err)
		}
	}

	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: time.Second, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", s.path, err)
	}
	return db, nil
}

// Save implements Store. Each call appends a new revision.
func (s *BoltStore) Save(_ context.Context, inv types.Inventory) error {
	if inv == nil {
		inv = types.Inventory{}
	}

	db, err := s.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bbolt.Tx) error {
		revisions, err := tx.CreateBucketIfNotExists(bucketRevisions)
		if err != nil {
			return fmt.Errorf("create revisions bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		rev := int64(1)
		if data := meta.Get(keyCurrentRev); data != nil {
			rev = bytesToInt64(data) + 1
		}

		value, err := json.Marshal(Revision{
			Number:    rev,
			SavedAt:   s.now().UTC(),
			Groups:    len(inv),
			Resources: inv.Len(),
			Inventory: inv,
		})
		if err != nil {
			return fmt.Errorf("encode revision: %w", err)
		}

		if err := revisions.Put(int64ToBytes(rev), value); err != nil {
			return fmt.Errorf("put revision %d: %w", rev, err)
		}
		return meta.Put(keyCurrentRev, int64ToBytes(rev))
	})
}

// Load implements Store and returns the latest revision.
func (s *BoltStore) Load(_ context.Context) (types.Inventory, error) {
	db, err := s.open(true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var rev Revision
	err = db.View(func(tx *bbolt.Tx) error {
		revisions := tx.Bucket(bucketRevisions)
		if revisions == nil {
			return errNoRevisions
		}
		_, value := revisions.Cursor().Last()
		if value == nil {
			return errNoRevisions
		}
		return json.Unmarshal(value, &rev)
	})
	if errors.Is(err, errNoRevisions) {
		return nil, fmt.Errorf("%w: %s has no revisions", ErrStateNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read state database %s: %w", s.path, err)
	}

	if rev.Inventory == nil {
		rev.Inventory = types.Inventory{}
	}
	return rev.Inventory, nil
}

// History lists saved revisions, oldest first, without their inventories.
func (s *BoltStore) History(_ context.Context) ([]Revision, error) {
	db, err := s.open(true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var history []Revision
	err = db.View(func(tx *bbolt.Tx) error {
		revisions := tx.Bucket(bucketRevisions)
		if revisions == nil {
			return nil
		}
		return revisions.ForEach(func(_, value []byte) error {
			var rev Revision
			if err := json.Unmarshal(value, &rev); err != nil {
				return err
			}
			rev.Inventory = nil
			history = append(history, rev)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read state database %s: %w", s.path, err)
	}
	return history, nil
}

// Revision keys are big-endian so cursor order matches revision order.
func int64ToBytes(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n)) // #nosec G115 -- revisions are positive
	return b
}

func bytesToInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b)) // #nosec G115 -- revisions are positive
}
