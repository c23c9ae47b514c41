// Package adbkit provides shared plumbing for the adbkit device console.
package adbkit

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// SafeGroup is an errgroup.Group with safer defaults for long-running workers
// such as the device watcher loop.
type SafeGroup struct {
	*errgroup.Group
	ctx context.Context
}

// NewSafeGroup creates a SafeGroup backed by errgroup.WithContext. The derived
// context is canceled on parent cancellation or the first non-nil error.
func NewSafeGroup(ctx context.Context) *SafeGroup {
	if ctx == nil {
		ctx = context.Background()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	return &SafeGroup{Group: group, ctx: groupCtx}
}

// Context returns the group-derived context workers should run under.
func (sg *SafeGroup) Context() context.Context {
	return sg.ctx
}

// GoSafe runs fn in an errgroup goroutine and restarts it with exponential
// backoff when it panics. Panics do not cancel sibling goroutines; a returned
// non-nil error keeps errgroup semantics and cancels the group.
//
// Panics are reported on stderr rather than through the logger, since the
// panic may originate inside the logger.
func (sg *SafeGroup) GoSafe(name string, fn func(context.Context) error) {
	if sg == nil || sg.Group == nil || fn == nil {
		return
	}
	sg.Group.Go(func() (err error) {
		backoff := 200 * time.Millisecond
		const maxBackoff = 30 * time.Second
		for {
			select {
			case <-sg.ctx.Done():
				return nil
			default:
			}

			panicked := false
			var recovered any
			func() {
				defer func() {
					if r := recover(); r != nil {
						panicked = true
						recovered = r
					}
				}()
				err = fn(sg.ctx)
			}()

			if !panicked {
				return err
			}

			_, _ = fmt.Fprintf(os.Stderr, "WARN: %s panicked: %v\n%s\n", name, recovered, debug.Stack())
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	})
}
