package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/internal/adapter/repository"
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	filesnapshot "github.com/johnquangdev/focus-group-analyzer/internal/infrastructure/snapshot"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
	"github.com/johnquangdev/focus-group-analyzer/pkg/textproc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	dir   string
	store *repository.ResponseStore
	files *filesnapshot.FileStore
	svc   *Service
}

func newFixture(t *testing.T, dir string) *fixture {
	t.Helper()
	files, err := filesnapshot.NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	store := repository.NewResponseStore(textproc.NewPipeline(textproc.DefaultMinTokenLength), zap.NewNop())
	svc := NewService(store, files, config.SnapshotConfig{
		Dir:             dir,
		Interval:        time.Hour,
		MaxRetryElapsed: time.Second,
		Parallelism:     2,
		FlushOnShutdown: true,
	}, nil, zap.NewNop())

	return &fixture{dir: dir, store: store, files: files, svc: svc}
}

func readSnapshot(t *testing.T, f *fixture, key entities.MeetingKey) string {
	t.Helper()
	data, err := os.ReadFile(f.files.Path(key))
	require.NoError(t, err)
	return string(data)
}

func TestSnapshotMeeting_MergesIntoExistingFile(t *testing.T) {
	f := newFixture(t, t.TempDir())
	key := entities.MeetingKey{CorpID: 1, MeetingID: 2}
	require.NoError(t, os.WriteFile(f.files.Path(key), []byte(`{"1":{"10":["빨강","사과"]}}`), 0o644))

	f.store.RecordText(1, 2, 1, 10, "바나나")
	require.NoError(t, f.svc.SnapshotMeeting(context.Background(), key))

	assert.Equal(t, `{"1":{"10":["빨강","사과","바나나"]}}`, readSnapshot(t, f, key))

	// nothing new: the file is left alone
	require.NoError(t, f.svc.SnapshotMeeting(context.Background(), key))
	assert.Equal(t, `{"1":{"10":["빨강","사과","바나나"]}}`, readSnapshot(t, f, key))
}

func TestReloadAll_RestartDoesNotDuplicateTokens(t *testing.T) {
	dir := t.TempDir()
	key := entities.MeetingKey{CorpID: 3, MeetingID: 4}

	first := newFixture(t, dir)
	first.store.RecordText(3, 4, 1, 10, "빨강 사과")
	require.NoError(t, first.svc.SnapshotAll(context.Background()))

	second := newFixture(t, dir)
	restored, err := second.svc.ReloadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.TokenMap{"1": {"10": {"빨강", "사과"}}}, restored[key])
	assert.True(t, second.store.HasMeeting(3, 4))
	assert.Equal(t, []string{"빨강", "사과"}, second.store.AggregateMeeting(3, 4))

	second.store.RecordText(3, 4, 1, 10, "바나나")
	require.NoError(t, second.svc.SnapshotAll(context.Background()))

	assert.Equal(t, `{"1":{"10":["빨강","사과","바나나"]}}`, readSnapshot(t, second, key))
}

func TestSnapshotAll_FailuresAreIsolated(t *testing.T) {
	f := newFixture(t, t.TempDir())
	good := entities.MeetingKey{CorpID: 1, MeetingID: 1}
	broken := entities.MeetingKey{CorpID: 1, MeetingID: 2}
	require.NoError(t, os.WriteFile(f.files.Path(broken), []byte(`{"1":`), 0o644))

	f.store.RecordText(1, 1, 1, 10, "사과")
	f.store.RecordText(1, 2, 1, 10, "바나나")

	err := f.svc.SnapshotAll(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrMalformedSnapshot)
	assert.Equal(t, `{"1":{"10":["사과"]}}`, readSnapshot(t, f, good))
	assert.Equal(t, `{"1":`, readSnapshot(t, f, broken))

	// the failed meeting keeps its tokens pending for the next attempt
	pending, _ := f.store.PendingTokens(broken)
	assert.Equal(t, entities.TokenMap{"1": {"10": {"바나나"}}}, pending)
	pending, _ = f.store.PendingTokens(good)
	assert.Empty(t, pending)
}

func TestReloadAll_SkipsMalformedPartitions(t *testing.T) {
	f := newFixture(t, t.TempDir())
	require.NoError(t, os.WriteFile(f.files.Path(entities.MeetingKey{CorpID: 1, MeetingID: 1}), []byte(`{"1":{"10":["사과"]}}`), 0o644))
	require.NoError(t, os.WriteFile(f.files.Path(entities.MeetingKey{CorpID: 1, MeetingID: 2}), []byte(`oops`), 0o644))

	restored, err := f.svc.ReloadAll(context.Background())

	assert.ErrorIs(t, err, entities.ErrMalformedSnapshot)
	assert.Len(t, restored, 1)
	assert.True(t, f.store.HasMeeting(1, 1))
	assert.False(t, f.store.HasMeeting(1, 2))
}

func TestStartStop_FlushesOnShutdown(t *testing.T) {
	f := newFixture(t, t.TempDir())
	key := entities.MeetingKey{CorpID: 8, MeetingID: 9}

	require.NoError(t, f.svc.Start(context.Background()))
	f.store.RecordText(8, 9, 1, 10, "포도")
	require.NoError(t, f.svc.Stop(context.Background()))

	assert.Equal(t, `{"1":{"10":["포도"]}}`, readSnapshot(t, f, key))
	// stopping twice is harmless
	assert.NoError(t, f.svc.Stop(context.Background()))
}
