package export

import (
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"

	"symtrail/internal/errors"
	"symtrail/internal/history"
)

// WriteHistory writes events to w as zstd-compressed JSON lines.
func WriteHistory(w io.Writer, events []history.Event) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(errors.ExportFailed, err, "failed to create zstd writer")
	}
	jw := json.NewEncoder(enc)
	for _, e := range events {
		if err := jw.Encode(e); err != nil {
			_ = enc.Close()
			return errors.Wrap(errors.ExportFailed, err, "failed to encode history event %d", e.ID)
		}
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(errors.ExportFailed, err, "failed to flush history export")
	}
	return nil
}

// ReadHistory decodes a stream written by WriteHistory.
func ReadHistory(r io.Reader) ([]history.Event, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ExportFailed, err, "failed to open history export")
	}
	defer dec.Close()

	var out []history.Event
	jr := json.NewDecoder(dec)
	for {
		var e history.Event
		if err := jr.Decode(&e); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, errors.Wrap(errors.ExportFailed, err, "failed to decode history export")
		}
		out = append(out, e)
	}
}
