package generate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/llm"
)

type scriptedProvider struct {
	mu       sync.Mutex
	results  []string
	errs     []error
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (p *scriptedProvider) next() (string, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.mu.Unlock()

	cur := atomic.AddInt32(&p.inFlight, 1)
	for {
		prev := atomic.LoadInt32(&p.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&p.maxSeen, prev, cur) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	atomic.AddInt32(&p.inFlight, -1)

	var res string
	var err error
	if idx < len(p.results) {
		res = p.results[idx]
	}
	if idx < len(p.errs) {
		err = p.errs[idx]
	}
	return res, err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.next()
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.next()
}

func (p *scriptedProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, opts ...llm.Option) (string, error) {
	res, err := p.next()
	if err != nil {
		return "", err
	}
	for _, r := range res {
		if err := onDelta(string(r)); err != nil {
			return "", err
		}
	}
	return res, nil
}

func fastConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: 5 * time.Millisecond, MaxDuration: time.Minute}
}

func TestGenerateTrimsIncompleteSentence(t *testing.T) {
	p := &scriptedProvider{results: []string{"第一句完整。第二句被截断了一半"}}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	out, err := o.Generate(context.Background(), "提示")
	require.NoError(t, err)
	assert.Equal(t, "第一句完整。", out)
}

func TestGenerateRetriesOnError(t *testing.T) {
	p := &scriptedProvider{
		results: []string{"", "", "成功的回答。"},
		errs:    []error{errors.New("busy"), errors.New("busy"), nil},
	}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	out, err := o.Generate(context.Background(), "提示")
	require.NoError(t, err)
	assert.Equal(t, "成功的回答。", out)
	assert.Equal(t, 3, p.calls)
}

func TestGenerateRetriesOnEmptyResult(t *testing.T) {
	p := &scriptedProvider{results: []string{"   ", "有内容。"}}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	out, err := o.Generate(context.Background(), "提示")
	require.NoError(t, err)
	assert.Equal(t, "有内容。", out)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	fail := errors.New("model down")
	p := &scriptedProvider{errs: []error{fail, fail, fail}}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	_, err := o.Generate(context.Background(), "提示")
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 3, p.calls)
}

func TestOnlyOneGenerationRunsAtATime(t *testing.T) {
	p := &scriptedProvider{
		results: []string{"一。", "二。", "三。", "四。"},
		delay:   20 * time.Millisecond,
	}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Generate(context.Background(), "提示")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.maxSeen, "generations overlapped")
}

func TestWaitingCallerGivesUpWhenContextDies(t *testing.T) {
	p := &scriptedProvider{results: []string{"慢回答。"}, delay: 100 * time.Millisecond}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	started := make(chan struct{})
	go func() {
		close(started)
		o.Generate(context.Background(), "占用")
	}()
	<-started
	time.Sleep(10 * time.Millisecond) // let the first caller take the slot

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.Generate(ctx, "排队")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.mu.Lock()
	calls := p.calls
	p.mu.Unlock()
	assert.Equal(t, 1, calls, "queued request must never reach the model")
}

func TestStreamForwardsDeltasAndStopsOnReject(t *testing.T) {
	p := &scriptedProvider{results: []string{"一二三四五"}}
	o := NewOrchestrator(p, logger.NewNopLogger(), fastConfig())

	var got []string
	stop := errors.New("client gone")
	_, err := o.Stream(context.Background(), "提示", func(delta string) error {
		got = append(got, delta)
		if len(got) == 3 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"一", "二", "三"}, got)
}

func TestEnsureSentenceCompleteness(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"完整句子。", "完整句子。"},
		{"第一句。残余", "第一句。"},
		{"冒号结尾：", "冒号结尾："},
		{"没有终止符，但有逗号还有尾巴", "没有终止符，"},
		{"什么标点都没有", "什么标点都没有"},
		{"换行也算\n残余", "换行也算\n"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EnsureSentenceCompleteness(c.in), "input %q", c.in)
	}
}
