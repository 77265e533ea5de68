package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecoderFraming(t *testing.T) {
	t.Parallel()

	body := ": keepalive\r\n" +
		"event: message\r\n" +
		"id: 7\r\n" +
		"data: line one\r\n" +
		"data:line two\r\n" +
		"\r\n" +
		"\n" +
		"data:  padded\n" +
		"\n" +
		"data: unterminated"

	dec := newDecoder(strings.NewReader(body))

	evt, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if evt.Data != "line one\nline two" || evt.Type != "message" || evt.ID != "7" {
		t.Fatalf("unexpected first event %+v", evt)
	}

	evt, err = dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if evt.Data != " padded" || evt.Type != "" {
		t.Fatalf("unexpected second event %+v", evt)
	}

	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF discarding the unterminated event, got %v", err)
	}
}

type brokenReader struct{ err error }

func (b brokenReader) Read([]byte) (int, error) { return 0, b.err }

func TestDecoderPropagatesReadErrors(t *testing.T) {
	t.Parallel()

	dec := newDecoder(brokenReader{err: io.ErrUnexpectedEOF})
	if _, err := dec.Next(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected read error got %v", err)
	}
}
