// SPDX-License-Identifier: GPL-3.0-only
package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(keyword string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, keyword)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestDebouncer_OnlyLastKeywordRuns(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(r.record)
	defer d.Stop()

	for _, kw := range []string{"e", "er", "err"} {
		d.Schedule(kw, 50*time.Millisecond)
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"err"}, r.snapshot())
	assert.False(t, d.Pending())
}

func TestDebouncer_SeparatedBurstsRunEach(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(r.record)
	defer d.Stop()

	d.Schedule("first", 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(r.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	d.Schedule("second", 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(r.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, r.snapshot())
}

func TestDebouncer_Cancel(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(r.record)
	defer d.Stop()

	d.Schedule("err", 20*time.Millisecond)
	assert.True(t, d.Pending())
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, r.snapshot())
}

func TestDebouncer_StopIgnoresLaterSchedules(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(r.record)
	d.Stop()

	d.Schedule("err", time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, r.snapshot())
	assert.False(t, d.Pending())
}
