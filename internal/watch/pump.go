// Package watch connects the compiler's output stream to the presenter.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/ndisidore/tscspin/internal/classify"
)

// _readSize bounds a single chunk. tsc writes far less than this per flush.
const _readSize = 64 << 10

// Handler consumes chunks strictly one at a time.
type Handler interface {
	Handle(ctx context.Context, chunk string) classify.Action
}

// Pump reads chunks from r and hands them to h in arrival order. Reading
// happens on one goroutine and h is only ever called from a second one, so h
// needs no locking. Pump returns nil on EOF or when ctx is cancelled; if r is
// an io.Closer it is closed on cancellation to unblock a pending Read.
func Pump(ctx context.Context, r io.Reader, h Handler) error {
	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	ch := make(chan string)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ch)
		if err := readChunks(gctx, r, ch); err != nil {
			return fmt.Errorf("reading compiler output: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for chunk := range ch {
			h.Handle(gctx, chunk)
		}
		return nil
	})

	return g.Wait()
}

func readChunks(ctx context.Context, r io.Reader, ch chan<- string) error {
	buf := make([]byte, _readSize)
	var pending []byte

	send := func(b []byte) bool {
		select {
		case ch <- string(b):
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		n, err := r.Read(buf)
		if n > 0 {
			complete, rest := splitRune(append(pending, buf[:n]...))
			if len(complete) > 0 && !send(complete) {
				return nil
			}
			pending = append([]byte(nil), rest...)
		}
		if err == nil {
			continue
		}
		if len(pending) > 0 && !send(pending) {
			return nil
		}
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			// Closed by the cancellation hook in Pump.
			return nil
		default:
			return err
		}
	}
}

// splitRune splits b before a trailing incomplete UTF-8 sequence so a rune
// is never cut across two chunks.
func splitRune(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return b, nil
		}
		return b[:i], b[i:]
	}
	return b, nil
}
