// Package store is a persistence layer for project status transitions
// and segment results keyed by project ID, backed by go.etcd.io/bbolt as
// a single-file embedded KV store for geodata. internal/plan never
// imports this package: the pipeline computes a result and hands it
// back to the caller, which decides whether and how to persist it.
package store

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
	"github.com/google/uuid"

	"github.com/dronesar/segmentplanner/internal/config"
	"github.com/dronesar/segmentplanner/internal/planerr"
	"github.com/dronesar/segmentplanner/internal/result"
)

var (
	bucketProjects = []byte("projects")
	bucketSegments = []byte("segments")
)

// Record is the persisted project envelope: its config, current status,
// and timestamps.
type Record struct {
	ID        string        `json:"id"`
	Project   config.Project `json:"project"`
	Status    config.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Error     string        `json:"error,omitempty"`
}

// Store is the persistence contract: create a project, set its status,
// store its finished segments, or delete it outright.
type Store interface {
	CreateProject(p config.Project) (id string, err error)
	SetStatus(id string, status config.Status, errMsg string) error
	AppendSegments(id string, segments []result.Segment) error
	GetProject(id string) (*Record, error)
	DeleteProject(id string) error
	Close() error
}

// BoltStore is the bbolt-backed reference Store.
type BoltStore struct {
	db *bolt.DB
}

// Open creates or opens a bbolt database file at path and ensures its
// buckets exist.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, planerr.Wrap(planerr.Resource, err, "opening project store %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketProjects); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSegments); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, planerr.Wrap(planerr.Resource, err, "initializing project store buckets")
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

// CreateProject persists a new project in the created state and returns
// its generated ID.
func (s *BoltStore) CreateProject(p config.Project) (string, error) {
	id := uuid.NewString()
	now := timeNow()
	rec := Record{ID: id, Project: p, Status: config.StatusCreated, CreatedAt: now, UpdatedAt: now}

	buf, err := json.Marshal(rec)
	if err != nil {
		return "", planerr.Wrap(planerr.Internal, err, "encoding project record")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProjects).Put([]byte(id), buf)
	})
	if err != nil {
		return "", planerr.Wrap(planerr.Resource, err, "writing project %q", id)
	}
	return id, nil
}

// SetStatus overwrites a project's status and error message. It does not
// check that the new status is a legal successor of the current one
// (created -> processing -> {completed, failed, cancelled}), so it does
// not reject a second transition into processing.
func (s *BoltStore) SetStatus(id string, status config.Status, errMsg string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProjects)
		buf := b.Get([]byte(id))
		if buf == nil {
			return planerr.Dataf("project %q not found", id)
		}
		var rec Record
		if err := json.Unmarshal(buf, &rec); err != nil {
			return planerr.Wrap(planerr.Internal, err, "decoding project record %q", id)
		}
		rec.Status = status
		rec.UpdatedAt = timeNow()
		rec.Error = errMsg
		newBuf, err := json.Marshal(rec)
		if err != nil {
			return planerr.Wrap(planerr.Internal, err, "encoding project record %q", id)
		}
		return b.Put([]byte(id), newBuf)
	})
}

// AppendSegments stores the finished result segments for a project. Each
// call replaces any segments stored earlier for that project; it does
// not add to them.
func (s *BoltStore) AppendSegments(id string, segments []result.Segment) error {
	buf, err := json.Marshal(segments)
	if err != nil {
		return planerr.Wrap(planerr.Internal, err, "encoding segments for project %q", id)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSegments).Put([]byte(id), buf)
	})
}

// GetProject returns the stored record for id.
func (s *BoltStore) GetProject(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		buf := tx.Bucket(bucketProjects).Get([]byte(id))
		if buf == nil {
			return planerr.Dataf("project %q not found", id)
		}
		return json.Unmarshal(buf, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteProject removes a project and any segments it produced.
func (s *BoltStore) DeleteProject(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketProjects).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketSegments).Delete([]byte(id))
	})
}

// timeNow is isolated behind a var so tests can stub it deterministically
// without reaching for a clock-injection interface nobody else needs.
var timeNow = time.Now
