package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"campus-events/internal/logger"
)

// Scanner reads frames until one of them decodes to a ticket code.
type Scanner struct {
	Open          func(ctx context.Context) (FrameSource, error)
	Decoder       Decoder
	FrameInterval time.Duration
	Logger        *logger.Logger
}

func New(open func(ctx context.Context) (FrameSource, error), log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.NewWithWriter(io.Discard)
	}
	return &Scanner{
		Open:          open,
		Decoder:       ZXingDecoder{},
		FrameInterval: 100 * time.Millisecond,
		Logger:        log,
	}
}

// Session is one running scan. It delivers at most one code, then releases
// its frame source.
type Session struct {
	result chan string
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

// Result yields the first decoded code and is closed when the session ends.
func (s *Session) Result() <-chan string { return s.result }

// Done is closed once the frame source has been released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop ends the session, cancels a pending frame read and waits for the
// frame source to be released. A code not yet read from Result is discarded.
// Calling it more than once, or after a result, is a no-op.
func (s *Session) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.cancel()
	})
	<-s.done
	for range s.result {
	}
}

// Err reports why the session ended without a result. It is only
// meaningful after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (sc *Scanner) Scan(ctx context.Context) *Session {
	runCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		result: make(chan string, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go sc.run(ctx, runCtx, sess)
	return sess
}

// run reads frames with runCtx, which Stop cancels. parent is only used to
// tell a caller cancellation apart from a Stop.
func (sc *Scanner) run(parent, runCtx context.Context, sess *Session) {
	defer close(sess.done)
	defer close(sess.result)
	defer sess.cancel()

	src, err := sc.Open(runCtx)
	if err != nil {
		sess.err = sc.endErr(parent, sess, fmt.Errorf("open camera: %w", err))
		if sess.err != nil {
			sc.Logger.Error("SCANNER", sess.err.Error())
		}
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			sc.Logger.Warn("SCANNER", fmt.Sprintf("Failed to release camera: %v", err))
		}
	}()

	ticker := time.NewTicker(sc.interval())
	defer ticker.Stop()

	for {
		if runCtx.Err() != nil {
			sess.err = sc.endErr(parent, sess, nil)
			return
		}

		frame, err := src.Next(runCtx)
		switch {
		case errors.Is(err, io.EOF):
			sc.Logger.Info("SCANNER", "Frame source exhausted without a code")
			return
		case err != nil:
			sess.err = sc.endErr(parent, sess, fmt.Errorf("read frame: %w", err))
			return
		}

		code, err := sc.Decoder.Decode(frame)
		if err == nil {
			if sess.stopped() {
				return
			}
			sess.result <- code
			return
		}
		if !errors.Is(err, ErrNoCode) {
			sc.Logger.Debug("SCANNER", fmt.Sprintf("Frame decode failed: %v", err))
		}

		select {
		case <-runCtx.Done():
			sess.err = sc.endErr(parent, sess, nil)
			return
		case <-ticker.C:
		}
	}
}

// endErr decides what Err reports: nothing after Stop, the caller's context
// error after a cancellation, err otherwise.
func (sc *Scanner) endErr(parent context.Context, sess *Session, err error) error {
	switch {
	case sess.stopped():
		return nil
	case parent.Err() != nil:
		return parent.Err()
	default:
		return err
	}
}

func (sc *Scanner) interval() time.Duration {
	if sc.FrameInterval <= 0 {
		return 100 * time.Millisecond
	}
	return sc.FrameInterval
}
