package service

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"ai-teaching-be/internal/dto"
	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/cache"
	"ai-teaching-be/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	payloads [][]byte
}

func (p *capturingPublisher) Publish(_ context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

func makeFileHeaders(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["files"]
}

func newTestKnowledge(t *testing.T, pub IPublisherService) (IKnowledgeService, string, cache.RetrievalCache) {
	t.Helper()
	base := t.TempDir()
	retrievalCache := cache.NewMemoryRetrievalCache()
	svc := NewKnowledgeService(
		base,
		&cannedStore{hits: map[string][]vectorstore.ScoredDocument{}},
		retrievalCache,
		pub,
		nil,
		logger.NewNopLogger(),
	)
	return svc, base, retrievalCache
}

func TestUploadSavesFilesAndQueuesIngestion(t *testing.T) {
	pub := &capturingPublisher{}
	svc, base, _ := newTestKnowledge(t, pub)

	headers := makeFileHeaders(t, map[string]string{"lesson.txt": "反向传播算法。"})
	res, err := svc.Upload(context.Background(), "u1", &dto.UploadKnowledgeRequest{
		Role:     "teacher",
		CourseId: "cs101",
		LessonId: "lesson1",
	}, headers)
	require.NoError(t, err)

	assert.Equal(t, "kb_u1_cs101_lesson1", res.CollectionId)
	assert.Equal(t, 1, res.Queued)

	savedPath := filepath.Join(base, "Teachers", "u1", "cs101", "lesson1", "lesson.txt")
	data, err := os.ReadFile(savedPath)
	require.NoError(t, err)
	assert.Equal(t, "反向传播算法。", string(data))

	require.Len(t, pub.payloads, 1)
	var msg dto.IngestKnowledgeMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, "kb_u1_cs101_lesson1", msg.CollectionId)
	assert.Equal(t, []string{savedPath}, msg.FilePaths)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _, _ := newTestKnowledge(t, pub)

	headers := makeFileHeaders(t, map[string]string{"malware.exe": "xx"})
	_, err := svc.Upload(context.Background(), "u1", &dto.UploadKnowledgeRequest{
		Role:     "teacher",
		CourseId: "cs101",
	}, headers)

	assert.Error(t, err)
	assert.Empty(t, pub.payloads)
}

func TestUploadRejectsEmptyFileList(t *testing.T) {
	svc, _, _ := newTestKnowledge(t, &capturingPublisher{})

	_, err := svc.Upload(context.Background(), "u1", &dto.UploadKnowledgeRequest{
		Role:     "teacher",
		CourseId: "cs101",
	}, nil)
	assert.Error(t, err)
}

func TestUploadInvalidScope(t *testing.T) {
	svc, _, _ := newTestKnowledge(t, &capturingPublisher{})

	headers := makeFileHeaders(t, map[string]string{"a.txt": "x"})
	// Teacher course material without a course id is not addressable.
	_, err := svc.Upload(context.Background(), "u1", &dto.UploadKnowledgeRequest{
		Role: "teacher",
	}, headers)
	assert.Error(t, err)
}

func TestDeleteCollectionFlushesCacheAndRemovesFiles(t *testing.T) {
	svc, base, retrievalCache := newTestKnowledge(t, &capturingPublisher{})

	rawDir := filepath.Join(base, "Students", "u1")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, "notes.txt"), []byte("x"), 0o644))

	key := cache.RetrievalKey{Query: "q", Collection: "kb_u1_student_default", Mode: "hybrid", TopK: 10}
	retrievalCache.Set(key, []vectorstore.ScoredDocument{{Document: vectorstore.Document{ID: "1"}}})

	res, err := svc.DeleteCollection(context.Background(), "u1", &dto.DeleteCollectionRequest{
		Role: "student",
	})
	require.NoError(t, err)
	assert.Equal(t, "kb_u1_student_default", res.CollectionId)

	_, found := retrievalCache.Get(key)
	assert.False(t, found)

	_, statErr := os.Stat(rawDir)
	assert.True(t, os.IsNotExist(statErr))
}
