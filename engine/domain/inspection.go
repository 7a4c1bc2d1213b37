package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Field is one open-ended inspection key with its decoded JSON value.
// Numbers decode as json.Number.
type Field struct {
	Key   string
	Value any
}

// Inspection is a single inspection record: the fixed keys plus every other
// key in document order. Fixed keys are matched exactly (lower case); other
// spellings such as "Remark" stay in Fields.
type Inspection struct {
	ID        string
	Date      string
	Inspector *string
	Mileage   any
	Remark    any
	Lat       any
	Lng       any
	Fields    []Field
}

// Key returns the inspection's normalized vehicle identifier.
func (in *Inspection) Key() string { return Normalize(in.ID) }

// Field returns the value stored under key in Fields.
func (in *Inspection) Field(key string) (any, bool) {
	for _, f := range in.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// InspectorOr returns the inspector name or fallback when absent.
func (in *Inspection) InspectorOr(fallback string) string {
	if in == nil || in.Inspector == nil {
		return fallback
	}
	return *in.Inspector
}

func (in *Inspection) set(key string, v any) {
	switch key {
	case "id":
		in.ID = valueText(v)
		return
	case "date":
		in.Date = valueText(v)
		return
	case "inspector":
		if v == nil {
			in.Inspector = nil
			return
		}
		s := valueText(v)
		in.Inspector = &s
		return
	case "mileage":
		in.Mileage = v
		return
	case "remark":
		in.Remark = v
		return
	case "lat":
		in.Lat = v
		return
	case "lng":
		in.Lng = v
		return
	}
	for i := range in.Fields {
		if in.Fields[i].Key == key {
			in.Fields[i].Value = v
			return
		}
	}
	in.Fields = append(in.Fields, Field{Key: key, Value: v})
}

// UnmarshalJSON decodes an inspection object preserving key order.
// Null and non-object values decode to the zero Inspection.
func (in *Inspection) UnmarshalJSON(data []byte) error {
	*in = Inspection{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("domain: decode inspection: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("domain: decode inspection key: %w", err)
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("domain: decode inspection %q: %w", key, err)
		}
		in.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("domain: decode inspection: %w", err)
	}
	return nil
}

// MarshalJSON re-emits the record: fixed keys first, then Fields in order.
func (in Inspection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		kb, err := json.Marshal(key)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("domain: encode %q: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	fixed := []Field{{"id", in.ID}, {"date", in.Date}}
	if in.Inspector != nil {
		fixed = append(fixed, Field{"inspector", *in.Inspector})
	}
	for _, f := range []Field{{"mileage", in.Mileage}, {"remark", in.Remark}, {"lat", in.Lat}, {"lng", in.Lng}} {
		if f.Value != nil {
			fixed = append(fixed, f)
		}
	}
	for _, f := range append(fixed, in.Fields...) {
		if err := write(f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// valueText renders a decoded JSON scalar as text; anything else is "".
func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
