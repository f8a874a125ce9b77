package mapview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jaennil/slippymap/pkg/logger"
)

var (
	ErrLoopStopped = errors.New("map loop stopped")
	ErrLoopRunning = errors.New("map loop already running")
)

// Loop is the single goroutine that owns a MapView. Fetch workers, HTTP
// handlers and point feeds hand it closures instead of touching map state
// themselves; frames are rendered on a fixed tick so redraw requests between
// two ticks collapse into one.
type Loop struct {
	view          *MapView
	events        chan func()
	frameInterval time.Duration
	logger        logger.Logger

	once    sync.Once
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewLoop(view *MapView, frameInterval time.Duration, queueSize int, l logger.Logger) *Loop {
	if frameInterval <= 0 {
		frameInterval = 16 * time.Millisecond
	}
	return &Loop{
		view:          view,
		events:        make(chan func(), max(queueSize, 1)),
		frameInterval: frameInterval,
		logger:        l,
		done:          make(chan struct{}),
	}
}

// Run processes events and frames until ctx is cancelled. After it returns
// every Dispatch fails with ErrLoopStopped.
func (lp *Loop) Run(ctx context.Context) error {
	lp.mu.Lock()
	if lp.running {
		lp.mu.Unlock()
		return ErrLoopRunning
	}
	lp.running = true
	lp.mu.Unlock()

	defer lp.stop()

	ticker := time.NewTicker(lp.frameInterval)
	defer ticker.Stop()

	lp.logger.Info("map loop started", "frame_interval", lp.frameInterval)

	for {
		select {
		case <-ctx.Done():
			lp.logger.Info("map loop stopped")
			return nil
		case fn := <-lp.events:
			fn()
		case now := <-ticker.C:
			lp.view.Frame(now)
		}
	}
}

func (lp *Loop) stop() {
	lp.once.Do(func() {
		close(lp.done)
	})
}

// Done is closed once the loop has stopped.
func (lp *Loop) Done() <-chan struct{} {
	return lp.done
}

// Dispatch queues fn to run on the loop goroutine. It blocks while the queue
// is full and must not be called from the loop goroutine itself.
func (lp *Loop) Dispatch(fn func()) error {
	select {
	case <-lp.done:
		return ErrLoopStopped
	default:
	}

	select {
	case lp.events <- fn:
		return nil
	case <-lp.done:
		return ErrLoopStopped
	}
}

// Do runs fn against the map view on the loop goroutine and waits for it.
func (lp *Loop) Do(ctx context.Context, fn func(v *MapView) error) error {
	result := make(chan error, 1)
	task := func() {
		result <- fn(lp.view)
	}

	select {
	case lp.events <- task:
	case <-lp.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-lp.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
