package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"time"

	"github.com/ExactTargetDev/flume/errors"
	"github.com/ExactTargetDev/flume/event"
)

// rawSerializer writes the event body followed by a newline. No
// tags, no structure.
type rawSerializer struct{}

func (rawSerializer) Encode(e *event.Event) ([]byte, error) {
	body := e.Body()
	out := make([]byte, 0, len(body)+1)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// jsonlSerializer writes one compact JSON object per line.
type jsonlSerializer struct{}

func (jsonlSerializer) Encode(e *event.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapInvalid(err, "jsonlSerializer", "Encode", "marshal event")
	}
	return append(data, '\n'), nil
}

// jsonSerializer writes one indented JSON document per record.
type jsonSerializer struct {
	indent string
}

func (s *jsonSerializer) Encode(e *event.Event) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", s.indent)
	if err != nil {
		return nil, errors.WrapInvalid(err, "jsonSerializer", "Encode", "marshal event")
	}
	return append(data, '\n'), nil
}

// csvSerializer writes timestamp,host,body records. The header line is
// emitted exactly once, before the first record, which is why csv
// serializers must not be shared between writers.
type csvSerializer struct {
	wroteHeader bool
	header      bool
}

func (s *csvSerializer) Encode(e *event.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if s.header && !s.wroteHeader {
		if err := w.Write([]string{"timestamp", "host", "body"}); err != nil {
			return nil, errors.WrapInvalid(err, "csvSerializer", "Encode", "write header")
		}
		s.wroteHeader = true
	}

	host, _ := e.Tag(event.TagHost)
	record := []string{
		e.Timestamp().UTC().Format(time.RFC3339Nano),
		host,
		string(e.Body()),
	}
	if err := w.Write(record); err != nil {
		return nil, errors.WrapInvalid(err, "csvSerializer", "Encode", "write record")
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.WrapInvalid(err, "csvSerializer", "Encode", "flush")
	}
	return buf.Bytes(), nil
}

// Built-in factories, registered by NewRegistry.

func newRaw(args []string) (Serializer, error) {
	if len(args) != 0 {
		return nil, errors.WrapInvalid(errors.ErrFormatArgs, "format", "newRaw",
			"raw takes no arguments")
	}
	return rawSerializer{}, nil
}

func newJSONL(args []string) (Serializer, error) {
	if len(args) != 0 {
		return nil, errors.WrapInvalid(errors.ErrFormatArgs, "format", "newJSONL",
			"jsonl takes no arguments")
	}
	return jsonlSerializer{}, nil
}

func newJSON(args []string) (Serializer, error) {
	indent := "  "
	switch len(args) {
	case 0:
	case 1:
		indent = args[0]
	default:
		return nil, errors.WrapInvalid(errors.ErrFormatArgs, "format", "newJSON",
			"json takes at most one indent argument")
	}
	return &jsonSerializer{indent: indent}, nil
}

func newCSV(args []string) (Serializer, error) {
	header := false
	switch len(args) {
	case 0:
	case 1:
		if args[0] != "header" {
			return nil, errors.WrapInvalid(errors.ErrFormatArgs, "format", "newCSV",
				"csv accepts only the 'header' argument")
		}
		header = true
	default:
		return nil, errors.WrapInvalid(errors.ErrFormatArgs, "format", "newCSV",
			"csv takes at most one argument")
	}
	return &csvSerializer{header: header}, nil
}
