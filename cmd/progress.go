// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"sync/atomic"
)

// barProgress prints a single updating percentage line to w, the way the
// original CLI's console progress bar does, without pulling in a
// third-party progress-bar widget for what's one carriage-returned line.
type barProgress struct {
	w         io.Writer
	total     int64
	done      int64
	cancelled int32
}

func newBarProgress(w io.Writer) *barProgress { return &barProgress{w: w} }

func (p *barProgress) SetTotal(total int64) { p.total = total }

func (p *barProgress) Advance(n int64) {
	done := atomic.AddInt64(&p.done, n)
	if p.total <= 0 {
		return
	}
	pct := float64(done) / float64(p.total) * 100
	fmt.Fprintf(p.w, "\r%6.2f%% (%d/%d bytes)", pct, done, p.total)
}

func (p *barProgress) Cancelled() bool { return atomic.LoadInt32(&p.cancelled) != 0 }

// Cancel requests that extraction stop at the next file or copy-block
// boundary; safe to call from a signal handler goroutine.
func (p *barProgress) Cancel() { atomic.StoreInt32(&p.cancelled, 1) }

func (p *barProgress) finish() { fmt.Fprintln(p.w) }

// staticPassword answers extract.PasswordProvider with one password fixed
// at construction, e.g. from a --password flag.
type staticPassword struct {
	password string
	have     bool
}

func (s staticPassword) Get() (string, bool) { return s.password, s.have }
