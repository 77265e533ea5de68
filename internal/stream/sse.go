package stream

import (
	"bufio"
	"io"
	"strings"
)

// event is one dispatched server-sent event.
type event struct {
	ID   string
	Type string
	Data string
}

// decoder frames a text/event-stream body into events. Lines may end in
// \n or \r\n; an event is dispatched on a blank line and an unterminated
// trailing event is discarded.
type decoder struct {
	r *bufio.Reader

	id        string
	eventType string
	data      []string
	hasData   bool
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: bufio.NewReader(r)}
}

// Next returns the next event, io.EOF on clean end of stream, or the read error.
func (d *decoder) Next() (event, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return event{}, io.EOF
			}
			if err != io.EOF {
				return event{}, err
			}
			// Final line without a newline cannot terminate an event.
			d.field(strings.TrimRight(line, "\r"))
			return event{}, io.EOF
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !d.hasData {
				d.eventType = ""
				continue
			}
			evt := event{ID: d.id, Type: d.eventType, Data: strings.Join(d.data, "\n")}
			d.data = d.data[:0]
			d.hasData = false
			d.eventType = ""
			return evt, nil
		}
		d.field(line)
	}
}

func (d *decoder) field(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}
	name, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}
	switch name {
	case "data":
		d.data = append(d.data, value)
		d.hasData = true
	case "event":
		d.eventType = value
	case "id":
		d.id = value
	}
}
