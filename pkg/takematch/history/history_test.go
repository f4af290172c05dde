package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/takematch/takematch/pkg/takematch/generate"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func report(succeeded int) generate.Report {
	return generate.Report{
		BatchID:   uuid.NewString(),
		Algorithm: "spectral",
		Succeeded: succeeded,
		Skipped:   1,
		Duration:  1500 * time.Millisecond,
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)

	first := report(3)
	require.NoError(t, s.Record("/band/sessions", first))
	time.Sleep(10 * time.Millisecond)
	second := report(5)
	require.NoError(t, s.Record("/band/sessions", second))
	require.NoError(t, s.Record("/band/masters", report(1)))

	runs, err := s.Recent("/band/sessions", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second.BatchID, runs[0].BatchID, "newest first")
	require.Equal(t, first.BatchID, runs[1].BatchID)
	require.Equal(t, 5, runs[0].Succeeded)
	require.Equal(t, int64(1500), runs[0].DurationMs)
	require.Equal(t, "spectral", runs[0].Algorithm)
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record("/band/sessions", report(i)))
	}
	runs, err := s.Recent("/band/sessions", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestLastRun(t *testing.T) {
	s := openStore(t)

	last, err := s.LastRun("/band/sessions")
	require.NoError(t, err)
	require.Nil(t, last, "no runs recorded yet")

	r := report(2)
	r.Cancelled = true
	require.NoError(t, s.Record("/band/sessions", r))

	last, err = s.LastRun("/band/sessions")
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, r.BatchID, last.BatchID)
	require.True(t, last.Cancelled)
	require.False(t, last.CreatedAt.IsZero())
}

func TestOneBatchRecordedPerFolder(t *testing.T) {
	s := openStore(t)

	// A recursive batch reports the same outcome to every folder it covered.
	r := report(4)
	for _, folder := range []string{"/band/a", "/band/b", "/band/c"} {
		require.NoError(t, s.Record(folder, r))
	}

	for _, folder := range []string{"/band/a", "/band/b", "/band/c"} {
		last, err := s.LastRun(folder)
		require.NoError(t, err)
		require.NotNil(t, last, "folder %s lost its run record", folder)
		require.Equal(t, r.BatchID, last.BatchID)
		require.Equal(t, 4, last.Succeeded)
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.sqlite3")

	s, err := Open(path)
	require.NoError(t, err)
	r := report(4)
	require.NoError(t, s.Record("/band/sessions", r))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	last, err := s2.LastRun("/band/sessions")
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, r.BatchID, last.BatchID)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Error(t, s.Record("/x", report(0)))
	_, err := s.Recent("/x", 1)
	require.Error(t, err)
}
