package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"
)

// Buckets
var (
	BucketSchemas    = []byte("schemas")    // "<Name>.v<N>" -> zstd(json Stored)
	BucketLatest     = []byte("latest")     // "<Name>" -> decimal version
	BucketMigrations = []byte("migrations") // artifact name -> zstd(script)
)

// BoltStore keeps schema snapshots and migration scripts in a bbolt
// database, compressed with zstd.
type BoltStore struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenBolt opens (creating if needed) a bolt-backed store at path.
func OpenBolt(path string) (*BoltStore, error) {
	if path == "" {
		return nil, ErrNotReady
	}
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, err
	}
	// Ensure buckets exist
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{BucketSchemas, BucketLatest, BucketMigrations} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, enc: enc, dec: dec}, nil
}

func (s *BoltStore) Close() error {
	_ = s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func schemaKey(name string, version int) []byte {
	return []byte(fmt.Sprintf("%s.v%d", name, version))
}

func (s *BoltStore) LoadLatest(name string) (*Stored, error) {
	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketLatest).Get([]byte(name))
		if v == nil {
			return nil
		}
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("corrupt latest marker for %s: %w", name, err)
		}
		version = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, nil
	}
	return s.Load(name, version)
}

func (s *BoltStore) Load(name string, version int) (*Stored, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketSchemas).Get(schemaKey(name, version))
		if v == nil {
			return fmt.Errorf("schema %s v%d: %w", name, version, ErrNotFound)
		}
		raw = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	data, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress schema %s v%d: %w", name, version, err)
	}
	var stored Stored
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse schema %s v%d: %w", name, version, err)
	}
	return &stored, nil
}

func (s *BoltStore) Save(stored Stored) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal schema %s: %w", stored.Name, err)
	}
	compressed := s.enc.EncodeAll(data, nil)

	return s.db.Update(func(tx *bbolt.Tx) error {
		key := schemaKey(stored.Name, stored.Version)
		if err := tx.Bucket(BucketSchemas).Put(key, compressed); err != nil {
			return err
		}
		latest := tx.Bucket(BucketLatest)
		cur := 0
		if v := latest.Get([]byte(stored.Name)); v != nil {
			cur, _ = strconv.Atoi(string(v))
		}
		if stored.Version > cur {
			return latest.Put([]byte(stored.Name), []byte(strconv.Itoa(stored.Version)))
		}
		return nil
	})
}

func (s *BoltStore) SaveMigration(name string, from, to int, script []byte) error {
	compressed := s.enc.EncodeAll(script, nil)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketMigrations).Put([]byte(ArtifactName(name, from, to)), compressed)
	})
}

func (s *BoltStore) LoadMigration(name string, from, to int) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketMigrations).Get([]byte(ArtifactName(name, from, to)))
		if v == nil {
			return fmt.Errorf("migration %s: %w", ArtifactName(name, from, to), ErrNotFound)
		}
		raw = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	data, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress migration %s: %w", ArtifactName(name, from, to), err)
	}
	return data, nil
}

func (s *BoltStore) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketLatest).ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
