package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-teaching-be/pkg/llm"
)

func newStreamServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, d := range deltas {
			fmt.Fprintf(w, `{"model":"test","message":{"role":"assistant","content":%q},"done":false}`+"\n", d)
		}
		fmt.Fprintln(w, `{"model":"test","message":{"role":"assistant","content":""},"done":true}`)
	}))
}

func TestChatStreamAccumulatesDeltas(t *testing.T) {
	srv := newStreamServer(t, []string{"机器学习", "是人工智能", "的分支。"})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "test")

	var got []string
	full, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "什么是机器学习"}}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "机器学习是人工智能的分支。", full)
	assert.Equal(t, []string{"机器学习", "是人工智能", "的分支。"}, got)
}

func TestChatStreamAbortsOnDeltaError(t *testing.T) {
	srv := newStreamServer(t, []string{"第一", "第二", "第三"})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "test")

	stop := errors.New("client gone")
	seen := 0
	partial, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, "第一第二", partial)
	assert.Equal(t, 2, seen)
}

func TestChatReturnsFullMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"model":"test","message":{"role":"assistant","content":"答案在此。"},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "test")
	out, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "问题"}})
	require.NoError(t, err)
	assert.Equal(t, "答案在此。", out)
}

func TestChatSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "问题"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
