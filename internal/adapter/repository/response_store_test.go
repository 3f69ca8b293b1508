package repository

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	"github.com/johnquangdev/focus-group-analyzer/pkg/textproc"
)

type fieldsPipeline struct{}

func (fieldsPipeline) Tokens(text string) []string {
	return strings.Fields(text)
}

func TestResponseStore_AppendOnlyGrowth(t *testing.T) {
	store := NewResponseStore(textproc.NewPipeline(textproc.DefaultMinTokenLength), zap.NewNop())

	// the second and fourth answers tokenize to nothing
	answers := []string{"빨강 사과", "ok!!", "바나나 좋아요", "", "포도"}
	prevTokens := 0
	for i, answer := range answers {
		store.RecordText(1, 2, 3, 4, answer)

		rec, ok := store.Record(1, 2, 3, 4)
		require.True(t, ok)
		assert.Len(t, rec.Answers, i+1)
		assert.GreaterOrEqual(t, len(rec.TokenGroups), len(rec.Answers))
		assert.GreaterOrEqual(t, len(rec.Tokens), prevTokens)
		prevTokens = len(rec.Tokens)
	}

	rec, _ := store.Record(1, 2, 3, 4)
	assert.Equal(t, answers, rec.Answers)
	assert.Equal(t, [][]string{{"빨강", "사과"}, {}, {"바나나", "좋아요"}, {}, {"포도"}}, rec.TokenGroups)
	assert.Equal(t, []string{"빨강", "사과", "바나나", "좋아요", "포도"}, rec.Tokens)
}

func TestResponseStore_EmptyAnswersAreKept(t *testing.T) {
	store := NewResponseStore(textproc.NewPipeline(textproc.DefaultMinTokenLength), nil)

	store.RecordText(1, 2, 3, 4, "")
	store.RecordText(1, 2, 3, 4, "")

	rec, ok := store.Record(1, 2, 3, 4)
	require.True(t, ok)
	assert.Equal(t, []string{"", ""}, rec.Answers)
	assert.Len(t, rec.TokenGroups, 2)
	assert.Empty(t, rec.Tokens)

	script := store.Script(1, 2)
	require.Len(t, script, 1)
	assert.Len(t, script[0].Answers, 2)
	assert.Equal(t, []string{""}, store.AggregateQuestionSentences(1, 2, 3))
}

func TestResponseStore_IdenticalCallsAreNotDeduplicated(t *testing.T) {
	store := NewResponseStore(fieldsPipeline{}, nil)

	store.RecordText(1, 1, 1, 1, "same")
	store.RecordText(1, 1, 1, 1, "same")

	rec, _ := store.Record(1, 1, 1, 1)
	assert.Equal(t, []string{"same", "same"}, rec.Answers)
}

func TestResponseStore_AggregationCompleteness(t *testing.T) {
	store := NewResponseStore(fieldsPipeline{}, nil)

	store.RecordText(1, 2, 10, 100, "a b")
	store.RecordText(1, 2, 20, 100, "c")
	store.RecordText(1, 2, 10, 101, "d")
	store.RecordText(1, 2, 10, 100, "e")
	store.RecordText(1, 3, 10, 100, "other meeting")

	var union []string
	for _, q := range []int64{10, 20} {
		for _, u := range []int64{100, 101} {
			rec, _ := store.Record(1, 2, q, u)
			union = append(union, rec.Tokens...)
		}
	}

	got := store.AggregateMeeting(1, 2)
	assert.ElementsMatch(t, union, got)
	assert.Equal(t, []string{"a", "b", "e", "d", "c"}, got)
	assert.Equal(t, []string{"a", "b", "e", "d"}, store.AggregateQuestion(1, 2, 10))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, store.AllTokens(1, 2))
}

func TestResponseStore_AbsenceLooksLikeEmptiness(t *testing.T) {
	store := NewResponseStore(textproc.NewPipeline(textproc.DefaultMinTokenLength), nil)

	// a meeting whose only answer is filtered to nothing
	store.RecordText(1, 2, 3, 4, "그리고 매우 !!")

	unknown := store.AggregateMeeting(9, 9)
	empty := store.AggregateMeeting(1, 2)

	assert.Equal(t, []string{}, unknown)
	assert.Equal(t, unknown, empty)
	assert.Empty(t, store.AggregateQuestion(1, 2, 99))
	assert.Empty(t, store.AggregateQuestionSentences(9, 9, 9))

	// only the presence checks tell the two apart
	assert.False(t, store.HasMeeting(9, 9))
	assert.True(t, store.HasMeeting(1, 2))
	assert.True(t, store.HasCorp(1))
	assert.False(t, store.HasCorp(9))
	assert.True(t, store.HasQuestion(1, 2, 3))
	assert.False(t, store.HasQuestion(1, 2, 99))
}

func TestResponseStore_RegisterQuestionFirstWins(t *testing.T) {
	store := NewResponseStore(fieldsPipeline{}, zap.NewNop())

	assert.True(t, store.RegisterQuestion(1, 1, 1, "A"))
	assert.False(t, store.RegisterQuestion(1, 1, 1, "B"))
	assert.Equal(t, "A", store.QuestionText(1, 1, 1))
}

func TestResponseStore_ConcurrentFirstWrite(t *testing.T) {
	store := NewResponseStore(fieldsPipeline{}, nil)
	const n = 64

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			store.RecordText(7, 8, 9, 10, fmt.Sprintf("answer%d", i))
		}(i)
	}
	close(start)
	wg.Wait()

	rec, ok := store.Record(7, 8, 9, 10)
	require.True(t, ok)
	assert.Len(t, rec.Answers, n)
	assert.Len(t, rec.Tokens, n)
	assert.Equal(t, []entities.MeetingKey{{CorpID: 7, MeetingID: 8}}, store.Partitions())
	assert.Len(t, store.Script(7, 8), 1)
}

func TestResponseStore_PendingAndRestore(t *testing.T) {
	store := NewResponseStore(fieldsPipeline{}, nil)
	key := entities.MeetingKey{CorpID: 1, MeetingID: 2}

	require.NoError(t, store.Restore(key, entities.TokenMap{"1": {"10": {"빨강", "사과"}}}))
	store.RecordText(1, 2, 1, 10, "바나나")

	pending, mark := store.PendingTokens(key)
	assert.Equal(t, entities.TokenMap{"1": {"10": {"바나나"}}}, pending)
	assert.Equal(t, []string{"빨강", "사과", "바나나"}, store.AggregateQuestion(1, 2, 1))

	rec, _ := store.Record(1, 2, 1, 10)
	assert.Equal(t, []string{"바나나"}, rec.Answers)
	assert.Equal(t, [][]string{{"바나나"}}, rec.TokenGroups)
	assert.Equal(t, []string{"빨강", "사과", "바나나"}, rec.Tokens)

	store.MarkPersisted(key, mark)
	pending, _ = store.PendingTokens(key)
	assert.Empty(t, pending)

	bad := entities.MeetingKey{CorpID: 5, MeetingID: 5}
	assert.Error(t, store.Restore(bad, entities.TokenMap{"x": {"1": {"a"}}}))
	assert.False(t, store.HasMeeting(5, 5))
}
