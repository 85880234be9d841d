// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gogpu/frameproc/internal/profile"
)

// Scheduler serializes access to a Renderer and coalesces commands that
// arrive while a render is in flight.
//
// All Renderer calls happen on the scheduler's own goroutines and never
// overlap: the loop goroutine applies state changes while no render is in
// flight, and a single completion goroutine runs RenderFrame and delivers
// the image. At most one render is outstanding at any time.
//
// While a render is in flight, updates of effects, resolution, orientation
// and crop are cached with latest-value-wins semantics and applied before
// the next render. Under MostRecentFrame only the newest pending sample is
// kept; under AllFrames every sample is rendered in arrival order.
type Scheduler struct {
	r    Renderer
	opts schedulerOptions
	log  *slog.Logger

	mb       *mailbox
	images   chan *image.RGBA
	profiles chan string
	done     chan renderResult
	quit     chan struct{}
	abort    chan struct{}
	stopped  chan struct{}

	closeOnce sync.Once
	closeErr  error

	errMu sync.Mutex
	err   error

	// monitoring, read by Stats
	rendered atomic.Uint64
	dropped  atomic.Uint64
	queueLen atomic.Int64
	inFlight atomic.Bool

	// loop state, owned by the loop goroutine
	mode    RenderMode
	pending []*Frame
	cache   pendingUpdates
	queued  bool
	busy    bool
	counter uint64
}

// pendingUpdates holds at most one value per field; newer values replace
// older ones.
type pendingUpdates struct {
	effects     *EffectParameters
	resolution  *FrameSize
	orientation *Orientation
	crop        *Crop
}

func (p *pendingUpdates) empty() bool {
	return p.effects == nil && p.resolution == nil && p.orientation == nil && p.crop == nil
}

type renderResult struct {
	err     error
	aborted bool
}

// SchedulerStats is a snapshot of scheduler counters.
type SchedulerStats struct {
	Rendered uint64 // images delivered
	Dropped  uint64 // samples discarded by MostRecentFrame coalescing
	Pending  int    // samples waiting for a render
	Busy     bool   // a render is in flight
}

// NewScheduler starts a scheduler driving r in the given mode.
func NewScheduler(r Renderer, mode RenderMode, opts ...SchedulerOption) *Scheduler {
	o := defaultSchedulerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = uuid.NewString()
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	s := &Scheduler{
		r:        r,
		opts:     o,
		log:      log.With("session", o.sessionID),
		mb:       newMailbox(),
		images:   make(chan *image.RGBA, o.imageBuffer),
		profiles: make(chan string, o.profileBuffer),
		done:     make(chan renderResult, 1),
		quit:     make(chan struct{}),
		abort:    make(chan struct{}),
		stopped:  make(chan struct{}),
		mode:     mode,
	}
	s.log.Info("scheduler: started", "mode", mode.String())
	go s.loop()
	return s
}

// SessionID returns the identifier attached to log records.
func (s *Scheduler) SessionID() string { return s.opts.sessionID }

// Send enqueues commands without blocking. Commands of one call are handled
// as a single batch: at most one render is dispatched for the whole batch.
// It returns ErrClosed once the scheduler was closed or stopped on error.
func (s *Scheduler) Send(cmds ...RenderCmd) error {
	if len(cmds) == 0 {
		return nil
	}
	batch := make([]RenderCmd, len(cmds))
	copy(batch, cmds)
	if !s.mb.put(batch) {
		return ErrClosed
	}
	return nil
}

// Images returns the channel of rendered images. It is closed when the
// scheduler stops.
func (s *Scheduler) Images() <-chan *image.RGBA { return s.images }

// Profiles returns the channel of periodic profiling summaries. Summaries
// are dropped when the channel is full. It is closed when the scheduler
// stops.
func (s *Scheduler) Profiles() <-chan string { return s.profiles }

// Done is closed when the scheduler loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.stopped }

// Err returns the renderer error that stopped the scheduler, if any.
func (s *Scheduler) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Rendered: s.rendered.Load(),
		Dropped:  s.dropped.Load(),
		Pending:  int(s.queueLen.Load()),
		Busy:     s.inFlight.Load(),
	}
}

// Close stops accepting commands, waits for an in-flight render to finish
// and closes the output channels. The Renderer is closed too when the
// scheduler was created with WithOwnedRenderer. Close is idempotent.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		s.mb.close()
		close(s.quit)
		<-s.stopped
		if s.opts.ownsRenderer {
			s.closeErr = s.r.Close()
		}
	})
	return s.closeErr
}

func (s *Scheduler) loop() {
	defer s.shutdown()
	for {
		select {
		case <-s.mb.wake:
			for _, batch := range s.mb.take() {
				if err := s.handleBatch(batch); err != nil {
					s.fail(err)
					return
				}
			}
		case res := <-s.done:
			if err := s.complete(res); err != nil {
				s.fail(err)
				return
			}
		case <-s.quit:
			if s.busy {
				// No mid-render cancellation: let the completion goroutine
				// finish. Delivery observes quit and gives up.
				<-s.done
				s.setBusy(false)
			}
			return
		}
	}
}

func (s *Scheduler) shutdown() {
	s.mb.close()
	close(s.abort)
	if s.busy {
		// Stopped on error with a render in flight: the images channel stays
		// open until the completion goroutine has reported back.
		<-s.done
		s.setBusy(false)
	}
	close(s.images)
	close(s.profiles)
	s.log.Info("scheduler: stopped", "rendered", s.rendered.Load(), "dropped", s.dropped.Load())
	close(s.stopped)
}

func (s *Scheduler) fail(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	s.log.Error("scheduler: renderer failed, stopping session", "err", err)
}

// handleBatch applies every command of a batch in order and dispatches at
// most one render at the end.
func (s *Scheduler) handleBatch(batch []RenderCmd) error {
	want := false
	for _, cmd := range batch {
		render, err := s.handle(cmd)
		if err != nil {
			return err
		}
		want = want || render
	}
	if want {
		return s.requestRender()
	}
	return nil
}

// handle applies one command and reports whether it asks for a render.
func (s *Scheduler) handle(cmd RenderCmd) (bool, error) {
	switch c := derefCmd(cmd).(type) {
	case nil:
		s.log.Warn("scheduler: nil command ignored")
		return false, nil

	case RenderSample:
		if err := c.Frame.Validate(); err != nil {
			s.log.Warn("scheduler: sample rejected", "err", err)
			return false, nil
		}
		if s.mode == MostRecentFrame && len(s.pending) > 0 {
			s.dropped.Add(uint64(len(s.pending)))
			clear(s.pending)
			s.pending = s.pending[:0]
		}
		s.pending = append(s.pending, c.Frame)
		s.queueLen.Store(int64(len(s.pending)))
		return true, nil

	case RenderFrame:
		return true, nil

	case UpdateEffects:
		if err := c.Params.Validate(); err != nil {
			s.log.Warn("scheduler: effects rejected", "err", err)
			return false, nil
		}
		if s.busy {
			p := c.Params
			s.cache.effects = &p
			s.queued = true
			return false, nil
		}
		return false, s.r.UpdateEffects(c.Params)

	case UpdateOutputResolution:
		if c.Width == 0 || c.Height == 0 {
			s.log.Warn("scheduler: resolution rejected", "width", c.Width, "height", c.Height)
			return false, nil
		}
		if s.busy {
			sz := Size(c.Width, c.Height)
			s.cache.resolution = &sz
			s.queued = true
			return false, nil
		}
		return false, s.r.UpdateOutputResolution(c.Width, c.Height)

	case UpdateOrientation:
		if err := c.Orientation.Validate(); err != nil {
			s.log.Warn("scheduler: orientation rejected", "err", err)
			return false, nil
		}
		if s.busy {
			o := c.Orientation
			s.cache.orientation = &o
			s.queued = true
			return false, nil
		}
		return false, s.r.Orient(c.Orientation)

	case UpdateCrop:
		if err := c.Crop.Validate(); err != nil {
			s.log.Warn("scheduler: crop rejected", "err", err)
			return false, nil
		}
		if s.busy {
			cr := c.Crop
			s.cache.crop = &cr
			s.queued = true
			return false, nil
		}
		return false, s.r.Crop(c.Crop)

	case ChangeRenderMode:
		s.setMode(c.Mode)
		return false, nil

	default:
		s.log.Warn("scheduler: unknown command ignored", "type", fmt.Sprintf("%T", cmd))
		return false, nil
	}
}

func (s *Scheduler) setMode(m RenderMode) {
	if m == s.mode {
		return
	}
	s.log.Debug("scheduler: render mode changed", "from", s.mode.String(), "to", m.String())
	s.mode = m
	if m == MostRecentFrame && len(s.pending) > 1 {
		n := len(s.pending) - 1
		s.dropped.Add(uint64(n))
		last := s.pending[n]
		clear(s.pending)
		s.pending = append(s.pending[:0], last)
		s.queueLen.Store(1)
	}
}

// requestRender dispatches a render, or marks one as owed when busy.
func (s *Scheduler) requestRender() error {
	if s.busy {
		s.queued = true
		return nil
	}
	return s.dispatch()
}

// dispatch takes ownership of the renderer, drains cached updates, uploads
// the oldest pending sample and starts the render on a completion
// goroutine.
func (s *Scheduler) dispatch() error {
	s.setBusy(true)
	if err := s.prepare(); err != nil {
		s.setBusy(false)
		return err
	}
	go s.render()
	return nil
}

func (s *Scheduler) prepare() error {
	if err := s.flushCache(); err != nil {
		return err
	}
	if len(s.pending) > 0 {
		f := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.queueLen.Store(int64(len(s.pending)))
		if err := s.r.UploadSample(f); err != nil {
			return fmt.Errorf("upload sample %d: %w", f.Seq, err)
		}
	}
	if s.mode == AllFrames && len(s.pending) > 0 {
		s.queued = true
	}
	return nil
}

func (s *Scheduler) flushCache() error {
	if s.cache.empty() {
		return nil
	}
	c := s.cache
	s.cache = pendingUpdates{}
	if c.effects != nil {
		if err := s.r.UpdateEffects(*c.effects); err != nil {
			return err
		}
	}
	if c.orientation != nil {
		if err := s.r.Orient(*c.orientation); err != nil {
			return err
		}
	}
	if c.crop != nil {
		if err := s.r.Crop(*c.crop); err != nil {
			return err
		}
	}
	if c.resolution != nil {
		if err := s.r.UpdateOutputResolution(c.resolution.Width, c.resolution.Height); err != nil {
			return err
		}
	}
	return nil
}

// render runs on the completion goroutine.
func (s *Scheduler) render() {
	img, err := s.r.RenderFrame(context.Background())
	if err != nil {
		s.done <- renderResult{err: err}
		return
	}
	select {
	case s.images <- img:
		s.done <- renderResult{}
	case <-s.quit:
		s.done <- renderResult{aborted: true}
	case <-s.abort:
		s.done <- renderResult{aborted: true}
	}
}

func (s *Scheduler) complete(res renderResult) error {
	s.setBusy(false)
	switch {
	case errors.Is(res.err, ErrNoFrame):
		s.log.Debug("scheduler: nothing to render yet")
	case res.err != nil:
		return res.err
	case res.aborted:
		return nil
	default:
		s.counter++
		s.rendered.Add(1)
		if n := s.opts.profileInterval; n > 0 && s.counter%uint64(n) == 0 {
			s.emitProfile()
		}
	}
	if s.queued {
		s.queued = false
		return s.dispatch()
	}
	return nil
}

func (s *Scheduler) emitProfile() {
	summary := profile.Summary(s.r.Timings())
	s.log.Debug("scheduler: profile", "frames", s.counter, "summary", summary)
	select {
	case s.profiles <- summary:
	default:
	}
}

func (s *Scheduler) setBusy(b bool) {
	s.busy = b
	s.inFlight.Store(b)
}
