// Package tail turns the rawdata service's paginated fetch into an ordered,
// self-healing stream of decodable device frames.
//
// The stream never surfaces fetch failures: transport errors, malformed
// pages and lost continuations are absorbed by retry and re-discovery, and
// show up to the caller only as added latency before the next frame.
package tail

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/HatiCode/dtstail/pkg/onc"
	"github.com/HatiCode/dtstail/pkg/xt"
)

const (
	// DefaultRowLimit is the page size used when RowLimit is unset.
	DefaultRowLimit = 100

	// DefaultBackoff is the pause between discovery probes and after
	// failed or empty fetches when Backoff is unset.
	DefaultBackoff = 5 * time.Second
)

// Source performs the single paginated fetch the tailer consumes.
// *onc.Client satisfies it.
type Source interface {
	Fetch(ctx context.Context, opts onc.FetchOptions) (*onc.PageResult, error)
}

// Payload is one command frame lifted out of the device log.
type Payload struct {
	SampleTime string
	Frame      *xt.Frame
}

// Hooks receive notifications from inside the tail loop. All fields are
// optional; they exist so a host can count pages, waits and resets without
// the tailer knowing about its instrumentation.
type Hooks struct {
	OnPage        func(records, matched int)
	OnFetchError  func(err error)
	OnCursorReset func()
	OnWait        func()
}

// phase is the cursor state: the tailer either knows where to page from or
// is probing the service to find out.
type phase int

const (
	phaseBootstrapping phase = iota
	phasePaging
)

// Tailer is a pull iterator over the command frames of one device's log.
// Configure the exported fields before the first call to Next; a zero
// RowLimit, Backoff or Logger picks the package defaults. Not safe for
// concurrent use: Next must be called from a single goroutine.
type Tailer struct {
	// Source is required.
	Source Source

	// Start is the cursor to begin paging from. Empty means tail the live
	// end of the log: the first probe asks for the newest record and the
	// stream continues from there.
	Start string

	RowLimit int
	Backoff  time.Duration
	Logger   *slog.Logger
	Hooks    Hooks

	phase    phase
	cursor   string
	lastSeen string
	buf      []*Payload
	started  bool
}

// Next blocks until a frame payload is available or ctx ends. Payloads come
// back in fetch order, so sample times are non-decreasing. The only errors
// Next returns are a missing Source and ctx.Err(); everything the service
// throws at the tailer is retried internally.
func (t *Tailer) Next(ctx context.Context) (*Payload, error) {
	if t.Source == nil {
		return nil, errors.New("tail: Source is required")
	}
	if !t.started {
		t.init()
	}

	for len(t.buf) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch t.phase {
		case phaseBootstrapping:
			err = t.bootstrap(ctx)
		case phasePaging:
			err = t.page(ctx)
		}
		if err != nil {
			return nil, err
		}
	}

	p := t.buf[0]
	t.buf = t.buf[1:]
	return p, nil
}

func (t *Tailer) init() {
	if t.RowLimit < 1 {
		t.RowLimit = DefaultRowLimit
	}
	if t.Backoff <= 0 {
		t.Backoff = DefaultBackoff
	}
	if t.Logger == nil {
		t.Logger = slog.Default()
	}
	if t.Start != "" {
		t.cursor = t.Start
		t.lastSeen = t.Start
		t.phase = phasePaging
	}
	t.started = true
}

// bootstrap makes one discovery probe. With no known position it asks for
// the newest record and tails from there; otherwise it probes a single row
// at the last seen sampleTime until the service hands back a continuation.
// The probe point is inclusive, so no record is skipped across a recovery.
func (t *Tailer) bootstrap(ctx context.Context) error {
	opts := onc.FetchOptions{Cursor: t.lastSeen, RowLimit: 1, GetLatest: t.lastSeen == ""}
	page, err := t.Source.Fetch(ctx, opts)
	if err != nil {
		t.fetchError(err)
		return t.wait(ctx)
	}

	if next := continuation(page); next != "" {
		t.cursor = next
		t.phase = phasePaging
		t.Logger.Debug("cursor discovered", "cursor", next)
		return nil
	}
	if opts.GetLatest && len(page.Data) > 0 {
		if newest := page.Data[len(page.Data)-1].SampleTime; newest != "" {
			t.cursor = newest
			t.lastSeen = newest
			t.phase = phasePaging
			t.Logger.Debug("tailing from newest record", "cursor", newest)
			return nil
		}
	}

	t.Logger.Debug("no continuation yet", "last_seen", t.lastSeen)
	return t.wait(ctx)
}

// page fetches one page from the cursor and lifts matching records into the
// buffer. The continuation is a per-page value: a valid next.dateFrom
// advances the cursor, anything else degrades it and drops the tailer back
// to bootstrapping.
func (t *Tailer) page(ctx context.Context) error {
	page, err := t.Source.Fetch(ctx, onc.FetchOptions{Cursor: t.cursor, RowLimit: t.RowLimit})
	if err != nil {
		t.fetchError(err)
		return t.wait(ctx)
	}

	matched := 0
	for _, rec := range page.Data {
		if rec.SampleTime != "" {
			t.lastSeen = rec.SampleTime
		}
		if !strings.HasPrefix(rec.RawData, xt.CommandFramePrefix) {
			continue
		}
		var cmd xt.CommandFrame
		if err := json.Unmarshal([]byte(rec.RawData), &cmd); err != nil {
			t.Logger.Warn("skipping undecodable command frame", "sample_time", rec.SampleTime, "error", err)
			continue
		}
		if cmd.Resp == nil {
			t.Logger.Warn("command frame has no response body", "sample_time", rec.SampleTime)
			continue
		}
		t.buf = append(t.buf, &Payload{SampleTime: rec.SampleTime, Frame: cmd.Resp})
		matched++
	}
	if t.Hooks.OnPage != nil {
		t.Hooks.OnPage(len(page.Data), matched)
	}

	next := continuation(page)
	if next == "" {
		t.cursor = ""
		t.phase = phaseBootstrapping
		t.Logger.Debug("continuation lost, rediscovering cursor", "last_seen", t.lastSeen)
		if t.Hooks.OnCursorReset != nil {
			t.Hooks.OnCursorReset()
		}
		return nil
	}
	t.cursor = next

	if len(page.Data) == 0 {
		// Caught up with the log; keep polling at the backoff pace.
		return t.wait(ctx)
	}
	return nil
}

func (t *Tailer) fetchError(err error) {
	t.Logger.Warn("fetch failed, will retry", "error", err)
	if t.Hooks.OnFetchError != nil {
		t.Hooks.OnFetchError(err)
	}
}

// wait pauses for the backoff interval, honoring cancellation.
func (t *Tailer) wait(ctx context.Context) error {
	if t.Hooks.OnWait != nil {
		t.Hooks.OnWait()
	}
	timer := time.NewTimer(t.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// continuation extracts a usable cursor from a page. Absent and malformed
// continuations alike yield the unknown cursor.
func continuation(page *onc.PageResult) string {
	if page == nil || page.Next == nil {
		return ""
	}
	return page.Next.DateFrom
}
