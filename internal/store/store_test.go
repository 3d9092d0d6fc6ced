package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/dronesar/segmentplanner/internal/config"
	"github.com/dronesar/segmentplanner/internal/result"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetProject(t *testing.T) {
	s := openTestStore(t)
	p := config.Project{Name: "mission 1", DEMPath: "dem.tif"}

	id, err := s.CreateProject(p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rec, err := s.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "mission 1", rec.Project.Name)
	assert.Equal(t, config.StatusCreated, rec.Status)
}

func TestGetProjectNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetProject("does-not-exist")
	assert.Error(t, err)
}

func TestSetStatusTransitionsAndRecordsError(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateProject(config.Project{Name: "mission 2"})
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(id, config.StatusProcessing, ""))
	rec, err := s.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, config.StatusProcessing, rec.Status)

	require.NoError(t, s.SetStatus(id, config.StatusFailed, "dem not found"))
	rec, err = s.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, config.StatusFailed, rec.Status)
	assert.Equal(t, "dem not found", rec.Error)
}

func TestSetStatusUnknownProject(t *testing.T) {
	s := openTestStore(t)
	err := s.SetStatus("missing", config.StatusFailed, "x")
	assert.Error(t, err)
}

func TestAppendSegmentsSucceeds(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateProject(config.Project{Name: "mission 3"})
	require.NoError(t, err)

	segs := []result.Segment{{Sequence: 1, AccessMode: "road", AreaAcres: 10}}
	require.NoError(t, s.AppendSegments(id, segs))
}

func TestDeleteProjectRemovesRecordAndSegments(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateProject(config.Project{Name: "mission 4"})
	require.NoError(t, err)
	require.NoError(t, s.AppendSegments(id, []result.Segment{{Sequence: 1}}))

	require.NoError(t, s.DeleteProject(id))

	_, err = s.GetProject(id)
	assert.Error(t, err)

	require.NoError(t, s.db.View(func(tx *bolt.Tx) error {
		assert.Nil(t, tx.Bucket(bucketSegments).Get([]byte(id)))
		return nil
	}))
}
