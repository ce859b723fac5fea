// Package actor implements a minimal actor runtime: a piece of mutable
// state owned by exactly one goroutine and reachable only through an
// ordered mailbox. Handler invocations are strictly sequential, which is
// the sole synchronization mechanism; no locks guard the state.
//
// An actor can own child tasks attached through its Ref; when the actor
// shuts down it cancels and joins every attached child before terminating,
// so children never outlive their parent.
package actor

import (
	"errors"

	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/task"
)

// ErrMailboxClosed is returned by Ref.Send once the actor has shut down.
var ErrMailboxClosed = errors.New("actor mailbox is closed")

// Handler processes one message against the current state and returns the
// next state. It runs on the actor's goroutine; one invocation completes
// fully before the next queued message is dequeued.
type Handler[M, S any] func(ref *Ref[M], msg M, state S) S

// signal is the tagged union flowing through the mailbox: exactly one of
// message, child, or shutdown.
type signal[M any] struct {
	msg      M
	isMsg    bool
	child    task.Cancellable
	shutdown bool
}

// Ref is a cheap, shareable handle used to reach a running actor.
type Ref[M any] struct {
	mb *mailbox[signal[M]]
}

// Send enqueues a message for the actor. Fire-and-forget: delivery is
// guaranteed in enqueue order, handling is asynchronous. Fails only if the
// actor has shut down.
func (r *Ref[M]) Send(msg M) error {
	return r.mb.push(signal[M]{msg: msg, isMsg: true})
}

// Shutdown asks the actor to stop accepting messages and drain. Idempotent;
// safe to call from handlers and from other goroutines.
func (r *Ref[M]) Shutdown() {
	_ = r.mb.push(signal[M]{shutdown: true})
}

// AttachChild hands ownership of a running task to the actor. The actor
// cancels and joins it during its own shutdown. If the actor is already
// shutting down the child is cancelled immediately instead.
func (r *Ref[M]) AttachChild(child task.Cancellable) {
	if err := r.mb.push(signal[M]{child: child}); err != nil {
		logger.Debug("[actor] attach child after shutdown, cancelling it")
		child.Cancel()
	}
}

// Actor is a running actor instance. It satisfies task.Cancellable so it
// can be registered with a task.Manager alongside plain tasks: Cancel
// requests shutdown, Join waits for the drain to complete.
type Actor[M any] struct {
	ref  *Ref[M]
	done chan struct{}
}

// Run starts an actor with the given initial state and handler, returning
// the running instance. The handler owns the state from this point on.
func Run[M, S any](initial S, handler Handler[M, S]) *Actor[M] {
	ref := &Ref[M]{mb: newMailbox[signal[M]]()}
	a := &Actor[M]{
		ref:  ref,
		done: make(chan struct{}),
	}

	go func() {
		defer close(a.done)

		state := initial
		var children []task.Cancellable

	running:
		for {
			sig, ok := ref.mb.pop()
			if !ok {
				break
			}
			switch {
			case sig.child != nil:
				children = append(children, sig.child)
			case sig.shutdown:
				break running
			case sig.isMsg:
				state = handler(ref, sig.msg, state)
			}
		}

		// Draining: no further sends are accepted. Signals already queued
		// behind the shutdown are swept for child attachments, so a child
		// attached by the final handler invocation is still reaped. The
		// remaining messages are dropped. Then every attached child is
		// cancelled and joined in attach order.
		ref.mb.close()
		for {
			sig, ok := ref.mb.pop()
			if !ok {
				break
			}
			if sig.child != nil {
				children = append(children, sig.child)
			}
		}
		if len(children) > 0 {
			logger.Debug("[actor] shutting down %d child tasks", len(children))
		}
		for _, child := range children {
			child.Cancel()
		}
		for _, child := range children {
			child.Join()
		}
	}()

	return a
}

// Ref returns the handle used to send messages to this actor.
func (a *Actor[M]) Ref() *Ref[M] {
	return a.ref
}

// Cancel requests shutdown. Part of task.Cancellable.
func (a *Actor[M]) Cancel() {
	a.ref.Shutdown()
}

// Join blocks until the actor has terminated, including the cancellation
// and joining of every attached child.
func (a *Actor[M]) Join() {
	<-a.done
}
