package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/maxviazov/lp-feed/internal/pager"
	"github.com/maxviazov/lp-feed/internal/service"
)

// renderer prints only what changed since the previous snapshot.
type renderer struct {
	out        io.Writer
	key        pager.Key
	generation uint64
	shown      int
	lastStatus string
}

func (r *renderer) render(snap service.Snapshot) {
	key := snap.Identity.Key()
	if key != r.key || snap.State.Generation != r.generation || len(snap.Items) < r.shown {
		if key != r.key {
			fmt.Fprintf(r.out, "-- %s --\n", key)
		}
		r.key = key
		r.generation = snap.State.Generation
		r.shown = 0
	}
	for _, lp := range snap.Items[r.shown:] {
		fmt.Fprintf(r.out, "  #%-4d %s\n", lp.ID, lp.Title)
	}
	r.shown = len(snap.Items)

	status := fmt.Sprintf("[search=%q order=%s pages=%d items=%d has_next=%t loads=%d]",
		snap.Search, snap.Identity.Order, len(snap.State.Pages), len(snap.Items), snap.State.HasNext, snap.Loads)
	switch {
	case snap.SearchPending:
		status += fmt.Sprintf(" waiting for input %q", snap.RawSearch)
	case snap.State.Loading():
		status += " loading"
	case snap.State.Err != nil:
		status += " error: " + snap.State.Err.Error() + " (:retry)"
	}
	if status != r.lastStatus {
		fmt.Fprintln(r.out, status)
		r.lastStatus = status
	}
}

// syncWriter lets the renderer and the command loop share one output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
