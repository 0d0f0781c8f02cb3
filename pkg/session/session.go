// SPDX-License-Identifier: GPL-3.0-only

// Package session binds a log query to the process supervisor, the line
// streamer and the highlight and search engines, and exposes the operations
// a user interface drives.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/reader"
	"github.com/herokl/k8s-log-viewer/pkg/process"
	"github.com/herokl/k8s-log-viewer/pkg/search"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

// State is the fetch state of a session.
type State int

const (
	Idle State = iota
	Fetching
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Streaming:
		return "streaming"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Launcher starts the log source process for a query.
type Launcher interface {
	Launch(ctx context.Context, q Query) (*process.Handle, error)
}

// Snapshot is a consistent copy of the session status.
type Snapshot struct {
	ID            string
	State         State
	Query         Query
	SearchOpen    bool
	SearchKeyword string
	BufferBytes   int
	Lines         int
	MatchCurrent  int
	MatchTotal    int
	Selected      ty.Opt[highlight.Interval]
	Err           error
}

// Session is one log view: a query, the text received for it and the
// search state over that text. All methods are safe for concurrent use.
type Session struct {
	id       string
	launcher Launcher
	sup      *process.Supervisor
	disp     *dispatcher
	notifier Notifier
	trimmer  bool

	debounce  time.Duration
	maxBuffer int
	onError   func(error)
	debouncer *search.Debouncer

	// fetchMu serializes fetches, including the supervisor registration
	fetchMu sync.Mutex

	mu         sync.Mutex
	state      State
	query      Query
	buf        []byte
	lines      int
	fetchGen   uint64
	searchGen  uint64
	trimEpoch  uint64
	index      *search.Index
	searchOpen bool

	// keyword of the latest search, which the index may not reflect yet
	searchKeyword string
	selected      ty.Opt[highlight.Interval]
	lastErr       error
	closed        bool

	background sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithQuery sets the initial query.
func WithQuery(q Query) Option {
	return func(s *Session) { s.query = q }
}

// WithSupervisor replaces the process supervisor.
func WithSupervisor(sup *process.Supervisor) Option {
	return func(s *Session) { s.sup = sup }
}

// WithDebounce sets the quiet period of UpdateSearch.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithMaxBufferBytes bounds the buffer when the sink is a Trimmer.
func WithMaxBufferBytes(n int) Option {
	return func(s *Session) { s.maxBuffer = n }
}

// WithErrorHandler receives errors raised off the caller's goroutine, such
// as stream read failures.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Session) { s.onError = fn }
}

// New creates an idle session writing to sink.
func New(launcher Launcher, sink Sink, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString()[:8],
		launcher: launcher,
		query:    DefaultQuery(),
		debounce: search.DefaultDelay,
		index:    search.NewIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sup == nil {
		s.sup = process.NewSupervisor()
	}
	s.notifier, _ = sink.(Notifier)
	_, s.trimmer = sink.(Trimmer)
	s.disp = newDispatcher(sink)
	s.debouncer = search.NewDebouncer(func(keyword string) {
		if err := s.OpenSearch(keyword); err != nil && !errors.Is(err, ErrClosed) {
			s.report(err)
		}
	})
	log.Debug("session %s: created", s.id)
	return s
}

// ID returns the short session id used in log lines.
func (s *Session) ID() string { return s.id }

// Refresh clears the buffer and starts a new fetch for the current query,
// retiring any running one.
func (s *Session) Refresh(ctx context.Context) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	q := s.query
	if q.Selector.Empty() {
		s.mu.Unlock()
		return ErrNoTarget
	}
	s.fetchGen++
	gen := s.fetchGen
	s.state = Fetching
	s.lastErr = nil
	s.resetBufferLocked()
	s.notifyLocked()
	s.mu.Unlock()

	log.Info("session %s: fetching %s", s.id, q.Selector)
	h, err := s.launcher.Launch(ctx, q)
	if err != nil {
		// the new fetch replaces the old one even when it fails to start
		if cur := s.sup.Current(); cur != nil {
			s.sup.Unregister(cur)
		}
		s.fail(gen, err)
		return err
	}
	if err := s.sup.Register(h); err != nil {
		s.fail(gen, err)
		if errors.Is(err, process.ErrSupervisorClosed) {
			return ErrClosed
		}
		return err
	}

	s.mu.Lock()
	s.state = Streaming
	s.notifyLocked()
	s.mu.Unlock()

	reader.Start(h,
		func(line string) { s.appendLine(gen, line) },
		func(err error) { s.streamDone(gen, h, err) },
	)
	return nil
}

func (s *Session) fail(gen uint64, err error) {
	log.Warn("session %s: fetch failed: %v", s.id, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.fetchGen {
		return
	}
	s.state = Idle
	s.lastErr = err
	s.notifyLocked()
}

// resetBufferLocked empties the buffer and the match index for a new fetch.
func (s *Session) resetBufferLocked() {
	s.buf = nil
	s.lines = 0
	s.selected = ty.Opt[highlight.Interval]{}
	if err := s.index.Reset(s.searchKeyword, s.query.MatchMode); err != nil {
		_ = s.index.Reset("", s.query.MatchMode)
	}
	s.disp.enqueue(func(sink Sink) { sink.Clear() })
}

func (s *Session) appendLine(gen uint64, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.fetchGen || s.closed {
		return
	}

	text := line + "\n"
	offset := len(s.buf)
	s.buf = append(s.buf, text...)
	s.lines++

	before := s.index.Len()
	s.index.AppendScan(text, offset)

	batch := []op{func(sink Sink) { sink.InsertText(offset, text) }}
	batch = append(batch, regionOps(styleRegions(text, offset, s.query.LogKeyword, s.index.Since(before), ty.Opt[highlight.Interval]{}))...)
	if s.query.SearchRunning {
		batch = append(batch, func(sink Sink) { sink.ScrollToEnd() })
	}
	s.disp.enqueue(batch...)
	s.trimLocked()
	if s.index.Len() != before {
		s.notifyLocked()
	}
}

func (s *Session) streamDone(gen uint64, h *process.Handle, err error) {
	// retire what is left of the process tree after a read failure
	s.sup.Unregister(h)

	s.mu.Lock()
	current := gen == s.fetchGen && !s.closed
	if current {
		s.state = Idle
		if err != nil {
			s.lastErr = err
		}
		s.notifyLocked()
	}
	s.mu.Unlock()

	if current && err != nil {
		s.report(err)
	}
	log.Debug("session %s: stream of pid %d ended", s.id, h.PID())
}

// trimLocked drops whole leading lines once the buffer exceeds its bound.
func (s *Session) trimLocked() {
	if s.maxBuffer <= 0 || !s.trimmer || len(s.buf) <= s.maxBuffer {
		return
	}
	excess := len(s.buf) - s.maxBuffer
	cut := bytes.IndexByte(s.buf[excess-1:], '\n')
	if cut < 0 {
		return
	}
	n := excess + cut
	if n >= len(s.buf) {
		// keep at least the last line
		last := bytes.LastIndexByte(s.buf[:len(s.buf)-1], '\n')
		if last < 0 {
			return
		}
		n = last + 1
	}

	dropped := bytes.Count(s.buf[:n], []byte{'\n'})
	s.buf = append([]byte(nil), s.buf[n:]...)
	s.lines -= dropped
	s.trimEpoch++
	s.index.Shift(n)
	if sel, ok := s.selected.Get(); ok {
		if sel.Start < n {
			s.selected = ty.Opt[highlight.Interval]{}
		} else {
			s.selected = ty.OptWrap(highlight.Interval{Start: sel.Start - n, End: sel.End - n})
		}
	}
	s.disp.enqueue(func(sink Sink) { sink.(Trimmer).TrimFront(n) })
	log.Trace("session %s: trimmed %d bytes (%d lines)", s.id, n, dropped)
}

// SetTarget selects the container to view and fetches its logs.
func (s *Session) SetTarget(ctx context.Context, sel Selector) error {
	if sel.Empty() {
		return ErrNoTarget
	}
	s.mu.Lock()
	s.query.Selector = sel
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// SetKeyword changes the fetch-time log keyword and fetches again.
func (s *Session) SetKeyword(ctx context.Context, keyword string) error {
	s.mu.Lock()
	s.query.LogKeyword = keyword
	hasTarget := !s.query.Selector.Empty()
	s.mu.Unlock()
	if !hasTarget {
		return nil
	}
	return s.Refresh(ctx)
}

// SetSinceSeconds restricts the fetch to the last n seconds, 0 for no limit,
// and fetches again.
func (s *Session) SetSinceSeconds(ctx context.Context, n int64) error {
	if n < 0 {
		return fmt.Errorf("since seconds must be >= 0, got %d", n)
	}
	s.mu.Lock()
	if n == 0 {
		s.query.SinceSeconds.U()
	} else {
		s.query.SinceSeconds.S(n)
	}
	hasTarget := !s.query.Selector.Empty()
	s.mu.Unlock()
	if !hasTarget {
		return nil
	}
	return s.Refresh(ctx)
}

// SetSinceDate fetches the logs written since the start of day's date.
// A day after now is rejected with ErrSinceInFuture.
func (s *Session) SetSinceDate(ctx context.Context, day, now time.Time) error {
	seconds, err := ty.SecondsSince(ty.StartOfDay(day), now)
	if err != nil {
		return err
	}
	return s.SetSinceSeconds(ctx, seconds)
}

// SetTailLines sets the number of lines the next fetch starts with; 0
// fetches the whole log.
func (s *Session) SetTailLines(n int) error {
	if n < 0 {
		return fmt.Errorf("tail lines must be >= 0, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.TailLines = n
	return nil
}

// SetContextLines sets the grep context of the next fetch. A context of 0
// follows the log; any other value fetches a finished excerpt.
func (s *Session) SetContextLines(n int) error {
	if n < 0 {
		return fmt.Errorf("context lines must be >= 0, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.ContextLines = n
	s.query.Follow = n == 0
	return nil
}

// SetFollow overrides whether the next fetch follows the log.
func (s *Session) SetFollow(follow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Follow = follow
}

// ToggleFollow flips auto-scrolling to new lines and returns the new value.
func (s *Session) ToggleFollow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.SearchRunning = !s.query.SearchRunning
	if s.query.SearchRunning {
		s.disp.enqueue(func(sink Sink) { sink.ScrollToEnd() })
	}
	s.notifyLocked()
	return s.query.SearchRunning
}

// SetMatchMode changes how the search keyword matches and recomputes an
// open search.
func (s *Session) SetMatchMode(mode highlight.MatchMode) error {
	s.mu.Lock()
	s.query.MatchMode = mode
	open, keyword := s.searchOpen, s.searchKeyword
	s.mu.Unlock()
	if !open {
		return nil
	}
	return s.OpenSearch(keyword)
}

// OpenSearch makes keyword the search keyword. Matches and styles are
// recomputed in the background and the first match is selected.
func (s *Session) OpenSearch(keyword string) error {
	job, err := s.beginRebuild(keyword, true, true, true)
	if err != nil {
		return err
	}
	go func() {
		defer s.background.Done()
		_, _ = s.runRebuild(job)
	}()
	return nil
}

// UpdateSearch schedules OpenSearch(keyword) after the debounce delay;
// a later call within the delay replaces it.
func (s *Session) UpdateSearch(keyword string) {
	s.debouncer.Schedule(keyword, s.debounce)
}

// CloseSearch drops the search keyword and restyles the buffer with the log
// keyword only.
func (s *Session) CloseSearch() error {
	s.debouncer.Cancel()
	job, err := s.beginRebuild("", false, false, true)
	if err != nil {
		return err
	}
	go func() {
		defer s.background.Done()
		_, _ = s.runRebuild(job)
	}()
	return nil
}

// SearchNext selects the match after the current one, wrapping around. A
// keyword different from the active one starts a new search and selects
// its first match.
func (s *Session) SearchNext(keyword string) (highlight.Interval, bool) {
	return s.navigate(keyword, true)
}

// SearchPrevious selects the match before the current one, wrapping around.
func (s *Session) SearchPrevious(keyword string) (highlight.Interval, bool) {
	return s.navigate(keyword, false)
}

func (s *Session) navigate(keyword string, forward bool) (highlight.Interval, bool) {
	s.mu.Lock()
	changed := !s.searchOpen || s.searchKeyword != keyword || s.index.Keyword() != keyword || s.index.Mode() != s.query.MatchMode
	s.mu.Unlock()

	if changed {
		s.debouncer.Cancel()
		job, err := s.beginRebuild(keyword, true, true, false)
		if err != nil {
			return highlight.Interval{}, false
		}
		sel, err := s.runRebuild(job)
		if err != nil {
			return highlight.Interval{}, false
		}
		return sel.Get()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var next highlight.Interval
	var ok bool
	switch {
	case !s.selected.Set:
		if forward {
			next, ok = s.index.Current()
		} else {
			next, ok = s.index.Previous()
		}
	case forward:
		next, ok = s.index.Next()
	default:
		next, ok = s.index.Previous()
	}
	if !ok {
		return highlight.Interval{}, false
	}
	s.selectLocked(next)
	return next, true
}

// selectLocked moves the selection to m, restyling the old and new regions.
func (s *Session) selectLocked(m highlight.Interval) {
	prev, hadPrev := s.selected.Get()
	s.selected = ty.OptWrap(m)

	var batch []op
	if hadPrev {
		batch = append(batch, s.restyleLocked(prev)...)
	}
	batch = append(batch, s.restyleLocked(m)...)
	batch = append(batch, func(sink Sink) { sink.SelectRange(m.Start, m.End) })
	s.disp.enqueue(batch...)
	s.notifyLocked()
}

// restyleLocked recomputes the styles of the lines spanned by iv.
func (s *Session) restyleLocked(iv highlight.Interval) []op {
	start := max(0, min(iv.Start, len(s.buf)))
	end := max(start, min(iv.End, len(s.buf)))
	if i := bytes.LastIndexByte(s.buf[:start], '\n'); i >= 0 {
		start = i + 1
	} else {
		start = 0
	}
	if i := bytes.IndexByte(s.buf[end:], '\n'); i >= 0 {
		end += i + 1
	} else {
		end = len(s.buf)
	}
	text := string(s.buf[start:end])
	return regionOps(styleRegions(text, start, s.query.LogKeyword, s.index.Within(start, end), s.selected))
}

// rebuildJob is a search recomputation captured under the session lock and
// run without it.
type rebuildJob struct {
	gen         uint64
	fetchGen    uint64
	epoch       uint64
	keyword     string
	mode        highlight.MatchMode
	logKeyword  string
	open        bool
	selectFirst bool
	text        string
}

// beginRebuild captures a rebuild job. With async set the caller must run
// the job on a new goroutine and call s.background.Done when it returns.
func (s *Session) beginRebuild(keyword string, open, selectFirst, async bool) (rebuildJob, error) {
	if open && keyword == "" {
		open = false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return rebuildJob{}, ErrClosed
	}
	if async {
		s.background.Add(1)
	}
	s.searchGen++
	s.searchOpen = open
	s.searchKeyword = ""
	if open {
		s.searchKeyword = keyword
	}
	return rebuildJob{
		gen:         s.searchGen,
		fetchGen:    s.fetchGen,
		epoch:       s.trimEpoch,
		keyword:     keyword,
		mode:        s.query.MatchMode,
		logKeyword:  s.query.LogKeyword,
		open:        open,
		selectFirst: selectFirst,
		text:        string(s.buf),
	}, nil
}

// runRebuild computes the new index and styles of job, then applies them if
// no newer fetch or search superseded the job. It returns the selection.
func (s *Session) runRebuild(job rebuildJob) (ty.Opt[highlight.Interval], error) {
	var patternErr error
	for {
		idx := search.NewIndex()
		if err := idx.Reset(job.keyword, job.mode); err != nil {
			// an unusable pattern behaves like a closed search
			patternErr = err
			job.keyword, job.open, job.selectFirst = "", false, false
			_ = idx.Reset("", job.mode)
		}
		idx.FullRescan(job.text)

		var selected ty.Opt[highlight.Interval]
		if first, ok := idx.Current(); ok && job.selectFirst {
			selected = ty.OptWrap(first)
		}
		regions := styleRegions(job.text, 0, job.logKeyword, idx.Matches(), selected)

		s.mu.Lock()
		if s.closed || job.gen != s.searchGen || job.fetchGen != s.fetchGen {
			s.mu.Unlock()
			log.Trace("session %s: %v (search %q)", s.id, ErrStaleComputation, job.keyword)
			return ty.Opt[highlight.Interval]{}, ErrStaleComputation
		}
		if job.epoch != s.trimEpoch {
			// the head of the buffer moved; compute again on the current text
			job.epoch = s.trimEpoch
			job.text = string(s.buf)
			s.mu.Unlock()
			continue
		}

		batch := regionOps(regions)
		// lines appended while computing were styled for the previous keyword
		if grown := len(s.buf) - len(job.text); grown > 0 {
			growth := string(s.buf[len(job.text):])
			before := idx.Len()
			idx.AppendScan(growth, len(job.text))
			batch = append(batch, regionOps(styleRegions(growth, len(job.text), job.logKeyword, idx.Since(before), ty.Opt[highlight.Interval]{}))...)
			if !selected.Set && job.selectFirst {
				if first, ok := idx.Current(); ok {
					selected = ty.OptWrap(first)
					batch = append(batch, s.restyleWith(idx, first, job.logKeyword)...)
				}
			}
		}
		if sel, ok := selected.Get(); ok {
			batch = append(batch, func(sink Sink) { sink.SelectRange(sel.Start, sel.End) })
		}
		s.index = idx
		s.selected = selected
		s.searchOpen = job.open
		if !job.open {
			s.searchKeyword = ""
		}
		switch {
		case patternErr != nil:
			s.lastErr = patternErr
		case s.lastErr != nil && !isFetchError(s.lastErr):
			s.lastErr = nil
		}
		s.disp.enqueue(batch...)
		s.notifyLocked()
		s.mu.Unlock()

		if patternErr != nil {
			log.Warn("session %s: %v", s.id, patternErr)
			s.report(patternErr)
			return ty.Opt[highlight.Interval]{}, patternErr
		}
		cur, total := idx.Count()
		log.Debug("session %s: search %q matched %d/%d", s.id, job.keyword, cur, total)
		return selected, nil
	}
}

// restyleWith restyles the lines around iv using idx. Callers hold s.mu.
func (s *Session) restyleWith(idx *search.Index, iv highlight.Interval, logKeyword string) []op {
	saved, savedSel, savedKw := s.index, s.selected, s.query.LogKeyword
	s.index, s.selected, s.query.LogKeyword = idx, ty.OptWrap(iv), logKeyword
	ops := s.restyleLocked(iv)
	s.index, s.selected, s.query.LogKeyword = saved, savedSel, savedKw
	return ops
}

func isFetchError(err error) bool {
	var cfgErr *ConfigurationError
	var startErr *ProcessStartError
	var readErr *StreamReadError
	return errors.As(err, &cfgErr) || errors.As(err, &startErr) || errors.As(err, &readErr)
}

// MatchCount returns the 1-based selected match position and the number of
// matches, (0, 0) without matches.
func (s *Session) MatchCount() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Count()
}

// MatchLabel renders MatchCount as "current/total".
func (s *Session) MatchLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Label()
}

// Text returns a copy of the buffer.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buf)
}

// Query returns a copy of the current query.
func (s *Session) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Snapshot returns the session status.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	cur, total := s.index.Count()
	return Snapshot{
		ID:            s.id,
		State:         s.state,
		Query:         s.query,
		SearchOpen:    s.searchOpen,
		SearchKeyword: s.searchKeyword,
		BufferBytes:   len(s.buf),
		Lines:         s.lines,
		MatchCurrent:  cur,
		MatchTotal:    total,
		Selected:      s.selected,
		Err:           s.lastErr,
	}
}

func (s *Session) notifyLocked() {
	if s.notifier == nil {
		return
	}
	snap := s.snapshotLocked()
	n := s.notifier
	s.disp.enqueue(func(Sink) { n.StatusChanged(snap) })
}

// Sync waits until every sink call issued so far has been applied.
func (s *Session) Sync() {
	s.disp.sync()
}

// Wait blocks until background searches have finished and the sink has
// caught up.
func (s *Session) Wait() {
	s.background.Wait()
	s.disp.sync()
}

func (s *Session) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Close stops the stream, terminates the log source process tree and waits
// for pending sink calls. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.fetchGen++
	s.state = Idle
	s.mu.Unlock()

	s.debouncer.Stop()
	s.sup.Shutdown()
	s.background.Wait()
	s.disp.close()
	log.Debug("session %s: closed", s.id)
	return nil
}

func regionOps(regions []highlight.Region) []op {
	ops := make([]op, 0, len(regions))
	for _, r := range regions {
		ops = append(ops, func(sink Sink) { sink.ApplyStyleRegion(r.Offset, r.Length, r.Styles) })
	}
	return ops
}

// styleRegions styles text, located at offset in the buffer, with the log
// keyword, the given search matches and the selected match. Matches are in
// buffer coordinates.
func styleRegions(text string, offset int, logKeyword string, matches []highlight.Interval, selected ty.Opt[highlight.Interval]) []highlight.Region {
	intervals := highlight.Intervals(text, highlight.Keyword{Text: logKeyword, Tag: highlight.TagLog, Mode: highlight.ModeSubstring})
	for _, m := range matches {
		intervals = append(intervals, highlight.TaggedInterval{
			Interval: highlight.Interval{Start: m.Start - offset, End: m.End - offset},
			Tag:      highlight.TagSearch,
		})
	}
	if sel, ok := selected.Get(); ok {
		intervals = append(intervals, highlight.TaggedInterval{
			Interval: highlight.Interval{Start: sel.Start - offset, End: sel.End - offset},
			Tag:      highlight.TagSelected,
		})
	}
	return highlight.Regions(offset, highlight.RunsFromIntervals(len(text), highlight.TagBase, intervals))
}
