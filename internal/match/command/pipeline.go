package command

import (
	"sync"

	"go.uber.org/zap"
)

// BackendStatus distinguishes the three outcomes of the authoritative
// path: no backend configured (local play, assume success), backend
// accepted, backend rejected.
type BackendStatus int

const (
	BackendNone BackendStatus = iota
	BackendAccepted
	BackendRejected
)

// ResultFunc receives the backend outcome for a submitted command.
// errMsg is only meaningful for BackendRejected. Callbacks are invoked
// from the match tick, never from a network goroutine.
type ResultFunc func(status BackendStatus, errMsg string)

// Forwarder sends an encoded command to the authoritative backend.
// done is called from any goroutine; the pipeline defers it onto the
// tick loop.
type Forwarder interface {
	Forward(payload []byte, done func(err error))
	Close() error
}

// Pipeline validates, optimistically executes, and forwards commands.
// Local state is authoritative until the backend says otherwise; on
// rejection the policy is log-and-diverge (no rollback), with recovery
// expected through an authoritative state sync.
type Pipeline struct {
	ctx    *Context
	fwd    Forwarder
	logger *zap.Logger

	mu          sync.Mutex
	completions []func()
}

// NewPipeline creates a pipeline. fwd may be nil for fully-local play.
func NewPipeline(ctx *Context, fwd Forwarder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{ctx: ctx, fwd: fwd, logger: logger}
}

// Submit runs the full command flow: validate locally (fast fail),
// execute optimistically, then forward to the backend if one is
// configured. Validation failures return immediately with the reason
// and never invoke onResult.
func (p *Pipeline) Submit(cmd Command, onResult ResultFunc) (bool, string) {
	if ok, reason := cmd.Validate(p.ctx); !ok {
		p.logger.Debug("command rejected",
			zap.String("kind", string(cmd.Kind())),
			zap.String("reason", reason),
		)
		return false, reason
	}

	if err := cmd.Execute(p.ctx); err != nil {
		// Validation passed but execution failed: integrity error, not a
		// player mistake. Degrade, don't crash.
		p.logger.Error("command execution failed",
			zap.String("kind", string(cmd.Kind())),
			zap.Error(err),
		)
		return false, err.Error()
	}

	if p.fwd == nil {
		p.enqueue(func() {
			if onResult != nil {
				onResult(BackendNone, "")
			}
		})
		return true, ""
	}

	payload, err := Encode(cmd)
	if err != nil {
		p.logger.Error("command encode failed",
			zap.String("kind", string(cmd.Kind())),
			zap.Error(err),
		)
		p.enqueue(func() {
			if onResult != nil {
				onResult(BackendRejected, err.Error())
			}
		})
		return true, ""
	}

	kind := cmd.Kind()
	p.fwd.Forward(payload, func(fwdErr error) {
		p.enqueue(func() {
			if fwdErr != nil {
				p.logger.Error("backend rejected command; local state diverges",
					zap.String("kind", string(kind)),
					zap.Error(fwdErr),
				)
				if onResult != nil {
					onResult(BackendRejected, fwdErr.Error())
				}
				return
			}
			if onResult != nil {
				onResult(BackendAccepted, "")
			}
		})
	})
	return true, ""
}

// Drain invokes pending backend callbacks. Called once per tick so that
// network completions land on the single-threaded update loop.
func (p *Pipeline) Drain() {
	p.mu.Lock()
	pending := p.completions
	p.completions = nil
	p.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (p *Pipeline) enqueue(fn func()) {
	p.mu.Lock()
	p.completions = append(p.completions, fn)
	p.mu.Unlock()
}
