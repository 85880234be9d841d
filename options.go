// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import "log/slog"

// DefaultProfileInterval is the number of completed renders between two
// profiling summaries.
const DefaultProfileInterval = 30

// SchedulerOption configures a Scheduler during creation.
//
// Example:
//
//	s := frameproc.NewScheduler(r, frameproc.AllFrames,
//	    frameproc.WithProfileInterval(60),
//	    frameproc.WithOwnedRenderer(),
//	)
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	profileInterval int
	imageBuffer     int
	profileBuffer   int
	ownsRenderer    bool
	sessionID       string
	logger          *slog.Logger
}

func defaultSchedulerOptions() schedulerOptions {
	return schedulerOptions{
		profileInterval: DefaultProfileInterval,
		imageBuffer:     1,
		profileBuffer:   4,
	}
}

// WithProfileInterval emits a profiling summary every n completed renders.
// Values below 1 disable the summaries.
func WithProfileInterval(n int) SchedulerOption {
	return func(o *schedulerOptions) {
		o.profileInterval = n
	}
}

// WithImageBuffer sets the capacity of the Images channel. A render that
// completes while the buffer is full waits for the consumer.
func WithImageBuffer(n int) SchedulerOption {
	return func(o *schedulerOptions) {
		if n >= 0 {
			o.imageBuffer = n
		}
	}
}

// WithProfileBuffer sets the capacity of the Profiles channel. Summaries
// that do not fit are dropped.
func WithProfileBuffer(n int) SchedulerOption {
	return func(o *schedulerOptions) {
		if n >= 0 {
			o.profileBuffer = n
		}
	}
}

// WithOwnedRenderer makes Close also close the Renderer.
func WithOwnedRenderer() SchedulerOption {
	return func(o *schedulerOptions) {
		o.ownsRenderer = true
	}
}

// WithSessionID sets the session attribute attached to every log record.
// By default a random UUID is used.
func WithSessionID(id string) SchedulerOption {
	return func(o *schedulerOptions) {
		o.sessionID = id
	}
}

// WithLogger overrides the package logger for one scheduler.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		o.logger = l
	}
}
