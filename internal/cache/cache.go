// Package cache provides a persistent, self-cleaning store of reachability
// decisions ("does v1 happen-before v2 under this semantics/algorithm")
// so repeated runs over the same trace don't recompute graph queries that
// were already answered.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "reachability"

// Cache provides persistent caching of reachability decisions using BoltDB.
// Implements self-cleaning: each run creates a new database, only entries
// looked up or stored during this run survive into the next.
type Cache struct {
	readDB  *bolt.DB // Existing cache (read-only)
	writeDB *bolt.DB // New cache (write) - BoltDB locks this file
	path    string   // Final path (for atomic swap)
	enabled bool
}

// Open opens the existing cache for reading and creates a new cache for
// writing. BoltDB's built-in file locking on the .new file prevents
// concurrent instances. Returns a disabled cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}
	var err error

	if _, statErr := os.Stat(path); statErr == nil {
		c.readDB, err = bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err != nil {
			c.readDB = nil
		}
	}

	newPath := path + ".new"
	c.writeDB, err = bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces old with new. Only
// replaces if the write database closed successfully, to avoid data loss.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // Increment when key format changes

// makeKey builds a deterministic byte key for a reachability decision.
// Key = ver(1) + v1Key + NUL + v2Key + NUL + algorithm(4, big-endian int32) + semantics.
func makeKey(v1Key, v2Key string, algorithm int, semantics string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(v1Key)
	buf.WriteByte(0)
	buf.WriteString(v2Key)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, int32(algorithm))
	buf.WriteString(semantics)
	return buf.Bytes()
}

// Lookup retrieves a cached reachability decision, reporting found=false on
// a cache miss. On a hit, the entry is copied into the new database
// (self-cleaning).
func (c *Cache) Lookup(v1Key, v2Key string, algorithm int, semantics string) (result, found bool) {
	if !c.enabled || c.readDB == nil {
		return false, false
	}

	key := makeKey(v1Key, v2Key, algorithm, semantics)
	var data []byte
	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return false, false
	}

	result = data[0] == 1
	_ = c.Store(v1Key, v2Key, algorithm, semantics, result)
	return result, true
}

// Store saves a reachability decision to the new database.
func (c *Cache) Store(v1Key, v2Key string, algorithm int, semantics string, result bool) error {
	if !c.enabled || c.writeDB == nil {
		return nil
	}
	val := byte(0)
	if result {
		val = 1
	}
	err := c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(v1Key, v2Key, algorithm, semantics), []byte{val})
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
