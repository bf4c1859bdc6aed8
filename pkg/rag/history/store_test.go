package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndListRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Save(Record{
		UserID:    "u1",
		SessionID: "sess",
		UserType:  "student",
		Task:      "qa",
		Query:     "什么是机器学习",
		Answer:    "机器学习是人工智能的分支。",
	})
	require.NoError(t, err)

	records, err := s.List("u1", "sess", false, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "什么是机器学习", records[0].Query)
	assert.Equal(t, "qa", records[0].Task)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestSessionsArePrunedToMax(t *testing.T) {
	s := NewStore(t.TempDir())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < MaxDialogues+5; i++ {
		_, err := s.Save(Record{
			UserID:    "u1",
			SessionID: "sess",
			UserType:  "student",
			Query:     fmt.Sprintf("问题%d", i),
			Answer:    "回答",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := s.List("u1", "sess", false, 0)
	require.NoError(t, err)
	assert.Len(t, records, MaxDialogues)
}

func TestTeacherAndStudentTreesAreSeparate(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Save(Record{UserID: "u1", SessionID: "sess", UserType: "teacher", Query: "q", Answer: "a"})
	require.NoError(t, err)

	asStudent, err := s.List("u1", "sess", false, 0)
	require.NoError(t, err)
	assert.Empty(t, asStudent)

	asTeacher, err := s.List("u1", "sess", true, 0)
	require.NoError(t, err)
	assert.Len(t, asTeacher, 1)
}

func TestClearRemovesAllRecords(t *testing.T) {
	s := NewStore(t.TempDir())
	for i := 0; i < 3; i++ {
		_, err := s.Save(Record{UserID: "u1", SessionID: "sess", UserType: "student", Query: "q", Answer: "a"})
		require.NoError(t, err)
	}

	deleted, err := s.Clear("u1", "sess", false)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	records, err := s.List("u1", "sess", false, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSessionsListsDirectories(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Save(Record{UserID: "u1", SessionID: "sess-a", UserType: "student", Query: "q", Answer: "a"})
	require.NoError(t, err)
	_, err = s.Save(Record{UserID: "u1", SessionID: "sess-b", UserType: "student", Query: "q", Answer: "a"})
	require.NoError(t, err)

	sessions, err := s.Sessions("u1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sess-a", "sess-b"}, sessions)

	none, err := s.Sessions("unknown", false)
	require.NoError(t, err)
	assert.Empty(t, none)
}
