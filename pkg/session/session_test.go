// SPDX-License-Identifier: GPL-3.0-only
package session

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/process"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

var testTarget = Selector{Namespace: "prod", Pod: "api-7d9"}

// scriptLauncher runs its scripts with sh, one per launch; the last script
// is reused once the list is exhausted.
type scriptLauncher struct {
	mu      sync.Mutex
	scripts []string
	calls   int
	queries []Query
	err     error
}

func (l *scriptLauncher) Launch(_ context.Context, q Query) (*process.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q)
	if l.err != nil {
		return nil, l.err
	}
	script := l.scripts[min(l.calls, len(l.scripts)-1)]
	l.calls++
	return process.Start(exec.Command("sh", "-c", script))
}

// recordingSink keeps the text and the styles of every byte.
type recordingSink struct {
	mu       sync.Mutex
	text     []byte
	styles   [][]highlight.Tag
	selStart int
	selEnd   int
	scrolls  int
	clears   int
	snaps    []Snapshot
}

func (r *recordingSink) InsertText(offset int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = slices.Insert(r.text, offset, []byte(text)...)
	r.styles = slices.Insert(r.styles, offset, make([][]highlight.Tag, len(text))...)
}

func (r *recordingSink) ApplyStyleRegion(offset, length int, styles []highlight.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := offset; i < offset+length && i < len(r.styles); i++ {
		r.styles[i] = styles
	}
}

func (r *recordingSink) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text, r.styles = nil, nil
	r.selStart, r.selEnd = 0, 0
	r.clears++
}

func (r *recordingSink) SelectRange(start, end int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selStart, r.selEnd = start, end
}

func (r *recordingSink) ScrollToEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls++
}

func (r *recordingSink) StatusChanged(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recordingSink) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.text)
}

func (r *recordingSink) StylesAt(i int) []highlight.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.styles[i]
}

func (r *recordingSink) Selection() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selStart, r.selEnd
}

type trimmingSink struct {
	recordingSink
}

func (t *trimmingSink) TrimFront(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = t.text[n:]
	t.styles = t.styles[n:]
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestSession(t *testing.T, sink Sink, launcher Launcher, opts ...Option) *Session {
	t.Helper()
	q := DefaultQuery()
	q.Selector = testTarget
	s := New(launcher, sink, append([]Option{WithQuery(q), WithDebounce(20 * time.Millisecond)}, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitLines(t *testing.T, s *Session, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.State == Idle && snap.Lines == n
	}, 5*time.Second, 10*time.Millisecond, "snapshot: %+v", s.Snapshot())
	s.Wait()
}

func TestRefresh_NoTarget(t *testing.T) {
	s := New(&scriptLauncher{}, &recordingSink{})
	defer s.Close()
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrNoTarget)
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestRefresh_StreamsLinesWithLogKeywordStyles(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'info ok\nerror boom\n'`}})

	require.NoError(t, s.SetKeyword(context.Background(), "ERROR"))
	waitLines(t, s, 2)

	assert.Equal(t, "info ok\nerror boom\n", sink.Text())
	assert.Equal(t, sink.Text(), s.Text())
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase}, sink.StylesAt(0))
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase, highlight.TagLog}, sink.StylesAt(8))
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase, highlight.TagLog}, sink.StylesAt(12))
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase}, sink.StylesAt(13))
	assert.Equal(t, 2, sink.scrolls)
	assert.NotEmpty(t, sink.snaps)
}

func TestOpenSearch_StylesAndSelectsFirstMatch(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'error a\nok\nerror b\n'`}})
	require.NoError(t, s.SetKeyword(context.Background(), "error"))
	waitLines(t, s, 3)

	require.NoError(t, s.OpenSearch("err"))
	s.Wait()

	assert.Equal(t, "1/2", s.MatchLabel())
	assert.ElementsMatch(t,
		[]highlight.Tag{highlight.TagBase, highlight.TagLog, highlight.TagSearch, highlight.TagSelected},
		sink.StylesAt(0))
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase, highlight.TagLog}, sink.StylesAt(3))
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase, highlight.TagLog, highlight.TagSearch}, sink.StylesAt(11))
	start, end := sink.Selection()
	assert.Equal(t, [2]int{0, 3}, [2]int{start, end})

	snap := s.Snapshot()
	assert.True(t, snap.SearchOpen)
	assert.Equal(t, "err", snap.SearchKeyword)
	assert.Equal(t, ty.OptWrap(highlight.Interval{Start: 0, End: 3}), snap.Selected)

	require.NoError(t, s.CloseSearch())
	s.Wait()
	assert.Equal(t, "0/0", s.MatchLabel())
	assert.ElementsMatch(t, []highlight.Tag{highlight.TagBase, highlight.TagLog}, sink.StylesAt(0))
	assert.False(t, s.Snapshot().SearchOpen)
}

func TestSearchNavigation(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'a x\nb x\nc x\n'`}})
	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 3)

	steps := []struct {
		name    string
		forward bool
		want    highlight.Interval
		label   string
	}{
		{name: "new keyword selects first", forward: true, want: highlight.Interval{Start: 2, End: 3}, label: "1/3"},
		{name: "next", forward: true, want: highlight.Interval{Start: 6, End: 7}, label: "2/3"},
		{name: "previous", forward: false, want: highlight.Interval{Start: 2, End: 3}, label: "1/3"},
		{name: "previous wraps to last", forward: false, want: highlight.Interval{Start: 10, End: 11}, label: "3/3"},
		{name: "next wraps to first", forward: true, want: highlight.Interval{Start: 2, End: 3}, label: "1/3"},
	}
	for _, step := range steps {
		var got highlight.Interval
		var ok bool
		if step.forward {
			got, ok = s.SearchNext("x")
		} else {
			got, ok = s.SearchPrevious("x")
		}
		require.True(t, ok, step.name)
		assert.Equal(t, step.want, got, step.name)
		assert.Equal(t, step.label, s.MatchLabel(), step.name)
	}

	s.Sync()
	assert.Contains(t, sink.StylesAt(2), highlight.TagSelected)
	assert.NotContains(t, sink.StylesAt(10), highlight.TagSelected)
	assert.Contains(t, sink.StylesAt(10), highlight.TagSearch)

	got, ok := s.SearchNext("b")
	require.True(t, ok)
	assert.Equal(t, highlight.Interval{Start: 4, End: 5}, got)
	assert.Equal(t, "1/1", s.MatchLabel())

	_, ok = s.SearchNext("zzz")
	assert.False(t, ok)
	assert.Equal(t, "0/0", s.MatchLabel())
}

func TestRefresh_SupersedesRunningFetch(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	launcher := &scriptLauncher{scripts: []string{
		`echo old; exec sleep 30`,
		`echo new`,
	}}
	s := newTestSession(t, sink, launcher, WithSupervisor(process.NewSupervisor(process.WithGracePeriod(200*time.Millisecond))))

	require.NoError(t, s.Refresh(context.Background()))
	require.Eventually(t, func() bool { return s.Snapshot().Lines == 1 }, 5*time.Second, 10*time.Millisecond)
	first := s.sup.Current()
	require.NotNil(t, first)

	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 1)

	assert.Equal(t, "new\n", s.Text())
	assert.Equal(t, "new\n", sink.Text())
	assert.Eventually(t, func() bool { return !first.Alive() }, 5*time.Second, 10*time.Millisecond)
}

func TestRefresh_LaunchErrorReturnsToIdle(t *testing.T) {
	startErr := &ProcessStartError{Command: "kubectl logs", Err: errors.New("exec: not found")}
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{err: startErr})

	err := s.Refresh(context.Background())
	var got *ProcessStartError
	require.ErrorAs(t, err, &got)
	s.Sync()

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, startErr, snap.Err)
	assert.Equal(t, 1, sink.clears)
}

func TestTrimming(t *testing.T) {
	skipWithoutShell(t)
	sink := &trimmingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'aaaa\nbbbb\ncccc\n'`}}, WithMaxBufferBytes(10))
	require.NoError(t, s.OpenSearch("a"))
	s.Wait()
	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 2)

	assert.Equal(t, "bbbb\ncccc\n", s.Text())
	assert.Equal(t, "bbbb\ncccc\n", sink.Text())
	assert.Equal(t, "0/0", s.MatchLabel())
}

func TestTrimming_IgnoredWithoutTrimmer(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'aaaa\nbbbb\ncccc\n'`}}, WithMaxBufferBytes(10))
	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 3)
	assert.Equal(t, "aaaa\nbbbb\ncccc\n", sink.Text())
}

func TestSearchRefreshKeepsKeyword(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'boom\nok\nboom\n'`}})
	require.NoError(t, s.OpenSearch("boom"))
	s.Wait()

	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 3)

	assert.Equal(t, "1/2", s.MatchLabel())
	assert.Contains(t, sink.StylesAt(10), highlight.TagSearch)
}

func TestUpdateSearch_Debounced(t *testing.T) {
	skipWithoutShell(t)
	s := newTestSession(t, &recordingSink{}, &scriptLauncher{scripts: []string{`printf 'boom\nbar\n'`}})
	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 2)

	for _, kw := range []string{"b", "bo", "boo", "boom"} {
		s.UpdateSearch(kw)
	}
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.SearchKeyword == "boom" && snap.MatchTotal == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestInvalidRegex(t *testing.T) {
	skipWithoutShell(t)
	var mu sync.Mutex
	var reported []error
	s := newTestSession(t, &recordingSink{}, &scriptLauncher{scripts: []string{`printf 'x\n'`}},
		WithErrorHandler(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		}))
	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 1)

	require.NoError(t, s.SetMatchMode(highlight.ModeRegex))
	require.NoError(t, s.OpenSearch("(x"))
	s.Wait()

	snap := s.Snapshot()
	assert.Error(t, snap.Err)
	assert.False(t, snap.SearchOpen)
	assert.Equal(t, "0/0", s.MatchLabel())
	mu.Lock()
	assert.Len(t, reported, 1)
	mu.Unlock()

	require.NoError(t, s.OpenSearch("x+"))
	s.Wait()
	assert.NoError(t, s.Snapshot().Err)
	assert.Equal(t, "1/1", s.MatchLabel())
}

func TestRefresh_InvalidSearchPatternFallsBackToNoSearch(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'a(b\n'`}})

	// a search left over from substring mode that regex mode cannot compile
	s.mu.Lock()
	s.query.MatchMode = highlight.ModeRegex
	s.searchKeyword = "a("
	s.searchOpen = true
	s.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 1)

	assert.Equal(t, "a(b\n", sink.Text())
	assert.Equal(t, "0/0", s.MatchLabel())
	s.mu.Lock()
	assert.Empty(t, s.index.Keyword())
	assert.Equal(t, 0, s.index.Len())
	s.mu.Unlock()
	assert.NotContains(t, sink.StylesAt(0), highlight.TagSearch)
}

func TestStreamReadError_KeepsBufferAndAllowsRefetch(t *testing.T) {
	skipWithoutShell(t)
	var mu sync.Mutex
	var reported []error
	sink := &recordingSink{}
	launcher := &scriptLauncher{scripts: []string{
		// the third line is longer than the reader accepts
		`printf 'one\ntwo\n'; head -c 2000000 /dev/zero | tr '\0' x; printf '\n'`,
		`echo again`,
	}}
	s := newTestSession(t, sink, launcher, WithErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	}))

	require.NoError(t, s.Refresh(context.Background()))
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.State == Idle && snap.Err != nil
	}, 10*time.Second, 10*time.Millisecond, "snapshot: %+v", s.Snapshot())
	s.Wait()

	var readErr *StreamReadError
	require.ErrorAs(t, s.Snapshot().Err, &readErr)
	assert.Equal(t, "one\ntwo\n", s.Text())
	assert.Equal(t, "one\ntwo\n", sink.Text())
	mu.Lock()
	require.Len(t, reported, 1)
	assert.ErrorAs(t, reported[0], &readErr)
	mu.Unlock()

	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 1)
	assert.Equal(t, "again\n", sink.Text())
	assert.NoError(t, s.Snapshot().Err)
	mu.Lock()
	assert.Len(t, reported, 1)
	mu.Unlock()
}

func TestRebuild_StaleResultsAreDropped(t *testing.T) {
	skipWithoutShell(t)
	sink := &recordingSink{}
	s := newTestSession(t, sink, &scriptLauncher{scripts: []string{`printf 'ok\nok\n'`}})
	require.NoError(t, s.Refresh(context.Background()))
	waitLines(t, s, 2)

	t.Run("newer fetch", func(t *testing.T) {
		job, err := s.beginRebuild("ok", true, true, false)
		require.NoError(t, err)
		require.NoError(t, s.Refresh(context.Background()))
		waitLines(t, s, 2)

		sink.mu.Lock()
		statuses := len(sink.snaps)
		sink.mu.Unlock()

		_, err = s.runRebuild(job)
		assert.ErrorIs(t, err, ErrStaleComputation)
		s.Sync()

		sink.mu.Lock()
		assert.Len(t, sink.snaps, statuses, "no status for a dropped result")
		sink.mu.Unlock()
		start, end := sink.Selection()
		assert.Equal(t, [2]int{0, 0}, [2]int{start, end})
		assert.False(t, s.Snapshot().Selected.Set)
	})

	t.Run("newer search", func(t *testing.T) {
		job, err := s.beginRebuild("ok", true, true, false)
		require.NoError(t, err)
		require.NoError(t, s.OpenSearch("missing"))
		s.Wait()

		_, err = s.runRebuild(job)
		assert.ErrorIs(t, err, ErrStaleComputation)
		s.Sync()

		snap := s.Snapshot()
		assert.Equal(t, "missing", snap.SearchKeyword)
		assert.Equal(t, 0, snap.MatchTotal)
		assert.Equal(t, "0/0", s.MatchLabel())
		assert.NotContains(t, sink.StylesAt(0), highlight.TagSearch)
	})
}

func TestQuerySetters(t *testing.T) {
	s := New(&scriptLauncher{}, &recordingSink{})
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SetTailLines(50))
	assert.Error(t, s.SetTailLines(-1))
	assert.Equal(t, 50, s.Query().TailLines)

	require.NoError(t, s.SetContextLines(3))
	assert.False(t, s.Query().Follow)
	require.NoError(t, s.SetContextLines(0))
	assert.True(t, s.Query().Follow)
	assert.Error(t, s.SetContextLines(-2))

	s.SetFollow(false)
	assert.False(t, s.Query().Follow)

	// without a target the setters only record the value
	require.NoError(t, s.SetSinceSeconds(ctx, 3600))
	assert.Equal(t, ty.OptWrap(int64(3600)), s.Query().SinceSeconds)
	require.NoError(t, s.SetSinceSeconds(ctx, 0))
	_, ok := s.Query().SinceSeconds.Get()
	assert.False(t, ok)
	assert.Error(t, s.SetSinceSeconds(ctx, -5))

	now := time.Date(2024, 6, 24, 10, 0, 0, 0, time.Local)
	require.NoError(t, s.SetSinceDate(ctx, now.AddDate(0, 0, -1), now))
	assert.Equal(t, ty.OptWrap(int64(34*3600)), s.Query().SinceSeconds)
	assert.ErrorIs(t, s.SetSinceDate(ctx, now.AddDate(0, 0, 1), now), ErrSinceInFuture)

	assert.ErrorIs(t, s.SetTarget(ctx, Selector{}), ErrNoTarget)

	assert.False(t, s.ToggleFollow())
	assert.True(t, s.ToggleFollow())
}

func TestClose(t *testing.T) {
	skipWithoutShell(t)
	s := New(&scriptLauncher{scripts: []string{`exec sleep 30`}}, &recordingSink{},
		WithSupervisor(process.NewSupervisor(process.WithGracePeriod(200*time.Millisecond))))
	require.NoError(t, s.SetTarget(context.Background(), testTarget))
	h := s.sup.Current()
	require.NotNil(t, h)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Eventually(t, func() bool { return !h.Alive() }, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, s.Refresh(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.OpenSearch("x"), ErrClosed)
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "streaming", Streaming.String())
	assert.Equal(t, "State(9)", State(9).String())
}
