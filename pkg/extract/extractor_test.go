package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("lesson.txt"))
	assert.True(t, IsSupported("lesson.md"))
	assert.True(t, IsSupported("lesson.markdown"))
	assert.True(t, IsSupported("lesson.PDF"))
	assert.True(t, IsSupported("lesson.docx"))
	assert.False(t, IsSupported("lesson.exe"))
	assert.False(t, IsSupported("lesson"))
}

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lesson.txt")
	require.NoError(t, os.WriteFile(path, []byte("第一章：机器学习概述。"), 0o644))

	e := NewFileExtractor()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "第一章：机器学习概述。", text)
}

func TestExtractMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# 课程大纲\n\n- 神经网络"), 0o644))

	e := NewFileExtractor()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "课程大纲")
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := NewFileExtractor()
	_, err := e.ExtractText("/tmp/whatever.xyz")
	assert.Error(t, err)
}

func TestExtractDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lesson.docx")
	writeMinimalDocx(t, path, []string{"卷积神经网络", "用于图像识别"})

	e := NewFileExtractor()
	text, err := e.ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "卷积神经网络")
	assert.Contains(t, text, "用于图像识别")
}

func TestExtractDocxNotAZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	e := NewFileExtractor()
	_, err := e.ExtractText(path)
	assert.Error(t, err)
}

func writeMinimalDocx(t *testing.T, path string, paragraphs []string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)

	body := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`

	_, err = doc.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
