package format

import (
	"bytes"
	"encoding/json"
)

// Record is one result row keyed by column name. Keys keep the order in
// which the columns were declared.
type Record struct {
	keys   []string
	values map[string]any
}

func newRecord(size int) Record {
	return Record{
		keys:   make([]string, 0, size),
		values: make(map[string]any, size),
	}
}

// set assigns a value; a repeated key keeps its first position and takes
// the latest value.
func (r *Record) set(key string, value any) {
	if _, found := r.values[key]; !found {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r Record) Len() int {
	return len(r.keys)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer

	b.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')

		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')

	return b.Bytes(), nil
}
