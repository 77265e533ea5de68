package stream

import (
	"context"
	"iter"
)

// Seq opens a session and yields its chunks in order. If the session fails
// the final pair carries the error. Stopping the iteration early cancels the
// session.
func (c *Consumer) Seq(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		chunks := make(chan string)
		stop := make(chan struct{})
		defer close(stop)

		sess, err := c.Open(ctx, prompt, Handlers{
			OnChunk: func(chunk string) {
				select {
				case chunks <- chunk:
				case <-stop:
				}
			},
			OnComplete: func() { close(chunks) },
		})
		if err != nil {
			yield("", err)
			return
		}
		defer sess.Cancel()

		for chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		<-sess.Done()
		if err := sess.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect drains a stream into a single string.
func (c *Consumer) Collect(ctx context.Context, prompt string) (string, error) {
	var out []byte
	for chunk, err := range c.Seq(ctx, prompt) {
		if err != nil {
			return string(out), err
		}
		out = append(out, chunk...)
	}
	return string(out), nil
}
