package es

import (
	"time"

	"github.com/mailru/easyjson/jwriter"
)

// Change describes a welcome name replaced through the control socket.
type Change struct {
	Name     string
	Previous string
	// address of the control connection that sent the command
	Remote    string
	Timestamp time.Time
}

// MarshalEasyJSON writes the document indexed in elasticsearch for a change.
func (c Change) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"@timestamp":`)
	w.Raw(c.Timestamp.UTC().MarshalJSON())
	w.RawString(`,"name":`)
	w.String(c.Name)
	w.RawString(`,"previous":`)
	w.String(c.Previous)
	w.RawString(`,"remote":`)
	w.String(c.Remote)
	w.RawByte('}')
}

func (c Change) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	c.MarshalEasyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}
