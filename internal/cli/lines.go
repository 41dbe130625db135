package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/raphaelgruber/medilink-console/internal/session"
)

// runLines drives sess from line input and prints every session event to
// w. Each line's work finishes before the next line is read. It returns
// once in is exhausted and all session work has settled, or when ctx ends.
func runLines(ctx context.Context, sess *session.Session, in io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := &lockedWriter{w: w}
	events, unsubscribe := sess.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			if line, ok := formatEvent(ev, false); ok {
				fmt.Fprintln(out, line)
			}
		}
	}()
	defer func() {
		unsubscribe()
		<-printed
	}()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				sess.Wait()
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}

			in := parseInput(line)
			if in.kind == inputQuit {
				sess.Wait()
				return nil
			}
			done, note := dispatch(ctx, sess, in)
			if done != nil {
				select {
				case <-done:
				case <-ctx.Done():
					return nil
				}
			}
			if note != "" {
				fmt.Fprintln(out, note)
			}
		}
	}
}

// lockedWriter serialises writes from the event printer and the input loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
