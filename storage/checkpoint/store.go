// Package checkpoint persists how far each named watch has delivered so a
// restarted watch resumes without gaps.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCheckpoints = []byte("checkpoints")

	// ErrNotFound is returned when no checkpoint exists for a name.
	ErrNotFound = errors.New("checkpoint: not found")
	// ErrRewind is returned when a save would move a checkpoint backwards.
	ErrRewind = errors.New("checkpoint: position before stored checkpoint")
)

// Checkpoint is the position of the last delivered log.
type Checkpoint struct {
	Block     uint64      `json:"block"`
	LogIndex  uint        `json:"logIndex"`
	TxHash    common.Hash `json:"txHash"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// At returns the checkpoint of log.
func At(log types.Log) Checkpoint {
	return Checkpoint{Block: log.BlockNumber, LogIndex: log.Index, TxHash: log.TxHash}
}

// FromBlock is where a resumed watch starts. The checkpoint block is
// replayed; Seen filters what was already delivered.
func (c Checkpoint) FromBlock() *big.Int {
	return new(big.Int).SetUint64(c.Block)
}

// Seen reports whether log was delivered at or before c.
func (c Checkpoint) Seen(log types.Log) bool {
	if log.BlockNumber != c.Block {
		return log.BlockNumber < c.Block
	}
	return log.Index <= c.LogIndex
}

func (c Checkpoint) before(o Checkpoint) bool {
	if c.Block != o.Block {
		return c.Block < o.Block
	}
	return c.LogIndex < o.LogIndex
}

// Store is a BoltDB-backed checkpoint store.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the store at path.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the checkpoint stored under name.
func (s *Store) Load(name string) (Checkpoint, error) {
	var cp Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCheckpoints).Get([]byte(name))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &cp)
	})
	return cp, err
}

// Save advances name to cp. Saving the current position again is a no-op;
// saving an earlier one fails with ErrRewind.
func (s *Store) Save(name string, cp Checkpoint) error {
	if name == "" {
		return errors.New("checkpoint: empty name")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCheckpoints)
		if raw := bucket.Get([]byte(name)); raw != nil {
			var prev Checkpoint
			if err := json.Unmarshal(raw, &prev); err != nil {
				return err
			}
			if cp.before(prev) {
				return fmt.Errorf("%w: %s at %d/%d", ErrRewind, name, prev.Block, prev.LogIndex)
			}
			if !prev.before(cp) {
				return nil
			}
		}
		cp.UpdatedAt = s.now().UTC()
		encoded, err := json.Marshal(cp)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(name), encoded)
	})
}

// Delete forgets name.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Delete([]byte(name))
	})
}

// Names lists stored checkpoints in lexical order.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}
