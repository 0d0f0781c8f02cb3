// SPDX-License-Identifier: GPL-3.0-only
package reader

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	r      io.Reader
	closer func()
	ctx    context.Context
	cancel context.CancelFunc
}

func newFakeSource(r io.Reader, closer func()) *fakeSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeSource{r: r, closer: closer, ctx: ctx, cancel: cancel}
}

func (f *fakeSource) PID() int                 { return 4242 }
func (f *fakeSource) Stdout() io.Reader        { return f.r }
func (f *fakeSource) Context() context.Context { return f.ctx }
func (f *fakeSource) CloseOutput() {
	if f.closer != nil {
		f.closer()
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
	errs  []error
	dones int
}

func (c *collector) line(l string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, l)
}

func (c *collector) done(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dones++
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

type failingReader struct {
	data string
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.data == "" {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("streamer did not finish")
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name      string
		input     io.Reader
		wantLines []string
		wantErr   bool
	}{
		{
			name:      "lines in order",
			input:     strings.NewReader("error: timeout\ninfo: ok\nerror: retrying\n"),
			wantLines: []string{"error: timeout", "info: ok", "error: retrying"},
		},
		{
			name:      "last line without newline",
			input:     strings.NewReader("one\ntwo"),
			wantLines: []string{"one", "two"},
		},
		{
			name:      "crlf terminators are stripped",
			input:     strings.NewReader("one\r\ntwo\r\n"),
			wantLines: []string{"one", "two"},
		},
		{
			name:  "empty output",
			input: strings.NewReader(""),
		},
		{
			name:      "read error after some lines",
			input:     &failingReader{data: "one\ntwo\n", err: errors.New("broken pipe")},
			wantLines: []string{"one", "two"},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			waitDone(t, Start(newFakeSource(tt.input, nil), c.line, c.done))

			assert.Equal(t, tt.wantLines, c.lines)
			assert.Equal(t, 1, c.dones)
			if tt.wantErr {
				require.Len(t, c.errs, 1)
				var readErr *StreamReadError
				require.ErrorAs(t, c.errs[0], &readErr)
				assert.Equal(t, 4242, readErr.PID)
				assert.Contains(t, readErr.Error(), "broken pipe")
			} else {
				assert.Empty(t, c.errs)
			}
		})
	}
}

func TestStart_SupersessionStopsDelivery(t *testing.T) {
	pr, pw := io.Pipe()
	src := newFakeSource(pr, func() { _ = pr.Close() })
	c := &collector{}
	finished := Start(src, c.line, c.done)

	_, err := pw.Write([]byte("first\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)

	src.cancel()
	waitDone(t, finished)
	_, _ = pw.Write([]byte("late\n"))

	assert.Equal(t, []string{"first"}, c.lines)
	assert.Equal(t, 1, c.dones)
	assert.Empty(t, c.errs)
}

func TestStart_DoesNotBlockCaller(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := newFakeSource(pr, func() { _ = pr.Close() })
	c := &collector{}

	returned := make(chan struct{})
	go func() {
		Start(src, c.line, c.done)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Start blocked on a silent source")
	}
	src.cancel()
}

func TestStart_ConsumerPanicIsReported(t *testing.T) {
	c := &collector{}
	onLine := func(l string) {
		if l == "boom" {
			panic("consumer failure")
		}
		c.line(l)
	}
	waitDone(t, Start(newFakeSource(strings.NewReader("ok\nboom\nnever\n"), nil), onLine, c.done))

	assert.Equal(t, []string{"ok"}, c.lines)
	require.Len(t, c.errs, 1)
	assert.Contains(t, c.errs[0].Error(), "consumer failure")
}

func TestStart_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	c := &collector{}
	waitDone(t, Start(newFakeSource(strings.NewReader(long+"\nshort\n"), nil), c.line, c.done))

	require.Len(t, c.lines, 2)
	assert.Len(t, c.lines[0], len(long))
	assert.Empty(t, c.errs)
}
