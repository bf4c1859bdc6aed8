package contextmgr

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryKeepsLastTurns(t *testing.T) {
	s := NewStore()
	for i := 0; i < 8; i++ {
		s.Update("sess", fmt.Sprintf("问题%d", i), fmt.Sprintf("回答%d", i), nil)
	}

	turns := s.History("sess")
	require.Len(t, turns, MaxTurns)
	assert.Equal(t, "问题3", turns[0].Query)
	assert.Equal(t, "问题7", turns[len(turns)-1].Query)
}

func TestUpdateKeepsFieldsIntactUnderBudget(t *testing.T) {
	s := NewStore()
	longAnswer := strings.Repeat("答", MaxAnswerLen+100)

	s.Update("sess", "短问题", longAnswer, nil)

	turns := s.History("sess")
	require.Len(t, turns, 1)
	// Aggregate is under MaxContextLen, so nothing is truncated yet.
	assert.Len(t, []rune(turns[0].Answer), MaxAnswerLen+100)
}

func TestContextStaysBoundedUnderManyUpdates(t *testing.T) {
	s := NewStore()
	for i := 0; i < 20; i++ {
		s.Update("sess", fmt.Sprintf("问题%d", i), strings.Repeat("答", 300), nil)
	}

	st := s.get("sess")
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Len(t, st.turns, MaxTurns)
	assert.LessOrEqual(t, st.totalLen(), MaxContextLen)
}

func TestBudgetOverflowTruncatesFieldsNotTurns(t *testing.T) {
	s := NewStore()
	for i := 0; i < 20; i++ {
		s.Update("sess",
			strings.Repeat("问", MaxQueryLen+50),
			strings.Repeat("答", MaxAnswerLen+100),
			[]string{fmt.Sprintf("第%d份资料：%s", i, strings.Repeat("文", MaxDocLen+100))},
		)
	}

	turns := s.History("sess")
	require.Len(t, turns, MaxTurns, "overflow must truncate fields, never evict turns")
	for _, turn := range turns {
		assert.LessOrEqual(t, len([]rune(turn.Query)), MaxQueryLen)
		assert.LessOrEqual(t, len([]rune(turn.Answer)), MaxAnswerLen)
	}

	st := s.get("sess")
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Len(t, st.docPool, MaxPoolDocs)
	for _, doc := range st.docPool {
		assert.LessOrEqual(t, len([]rune(doc)), MaxDocLen)
	}
}

func TestRelevantDocsFiltersByOverlap(t *testing.T) {
	s := NewStore()
	s.Update("sess", "q", "a", []string{
		"卷积神经网络在图像识别中的应用",
		"宋代商业经济的发展",
	})

	docs := s.RelevantDocs("sess", "什么是卷积神经网络")
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "卷积神经网络")
}

func TestRelevantHistoryFiltersByOverlap(t *testing.T) {
	s := NewStore()
	s.Update("sess", "什么是池化层", "池化层缩小特征图。", nil)
	s.Update("sess", "明天天气怎么样", "我无法查询天气。", nil)

	turns := s.RelevantHistory("sess", "池化层有什么作用")
	require.Len(t, turns, 1)
	assert.Equal(t, "什么是池化层", turns[0].Query)
}

func TestRelevantHistoryEmptyQueryReturnsAll(t *testing.T) {
	s := NewStore()
	s.Update("sess", "q1", "a1", nil)
	s.Update("sess", "q2", "a2", nil)

	assert.Len(t, s.RelevantHistory("sess", ""), 2)
}

func TestDocPoolDeduplicates(t *testing.T) {
	s := NewStore()
	s.Update("sess", "q1", "a1", []string{"同一份资料"})
	s.Update("sess", "q2", "a2", []string{"同一份资料"})

	docs := s.RelevantDocs("sess", "同一份资料")
	assert.Len(t, docs, 1)
}

func TestCleanupRemovesIdleSessions(t *testing.T) {
	s := NewStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	s.Update("old", "q", "a", nil)
	current = current.Add(25 * time.Hour)
	s.Update("fresh", "q", "a", nil)

	removed := s.Cleanup(SessionMaxAge)
	assert.Equal(t, 1, removed)
	assert.Empty(t, s.History("old"))
	assert.Len(t, s.History("fresh"), 1)
}

func TestClearDropsSession(t *testing.T) {
	s := NewStore()
	s.Update("sess", "q", "a", []string{"资料"})
	s.Clear("sess")
	assert.Empty(t, s.History("sess"))
	assert.Empty(t, s.RelevantDocs("sess", "资料"))
}

func TestConcurrentUpdatesDifferentSessions(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", n)
			for j := 0; j < 50; j++ {
				s.Update(id, "问题", "回答", []string{fmt.Sprintf("资料%d", j)})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.NotEmpty(t, s.History(fmt.Sprintf("sess-%d", i)))
	}
}
