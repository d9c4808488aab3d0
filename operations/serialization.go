package operations

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// IsSerializable reports whether v survives a JSON round trip, which reports persisted to
// disk rely on. Channels, funcs and types that fail to marshal are not serializable.
func IsSerializable(lggr logger.Logger, v any) bool {
	if v == nil {
		return true
	}

	if !isSerializableType(reflect.TypeOf(v), map[reflect.Type]bool{}) {
		lggr.Errorw("Value contains a type that cannot be serialized", "type", reflect.TypeOf(v).String())
		return false
	}

	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Failed to marshal value", "type", reflect.TypeOf(v).String(), "error", err)
		return false
	}

	return true
}

var marshalerType = reflect.TypeFor[json.Marshaler]()

func isSerializableType(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return true
	}
	seen[t] = true

	if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) {
		return true
	}

	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return isSerializableType(t.Elem(), seen)
	case reflect.Map:
		return isSerializableType(t.Key(), seen) && isSerializableType(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			if !isSerializableType(f.Type, seen) {
				return false
			}
		}
	}

	return true
}

// constructUniqueHashFrom hashes the definition and input of a run. The input is hashed in
// canonical JSON form so a typed input and the same input read back from disk hash equally.
func constructUniqueHashFrom(cache *sync.Map, def Definition, input any) (string, error) {
	b, err := json.Marshal(struct {
		Def   Definition `json:"def"`
		Input any        `json:"input"`
	}{def, input})
	if err != nil {
		return "", err
	}
	if b, err = canonicalJSON(b); err != nil {
		return "", err
	}

	key := string(b)
	if cache != nil {
		if h, ok := cache.Load(key); ok {
			return h.(string), nil
		}
	}

	sum := sha256.Sum256(b)
	h := hex.EncodeToString(sum[:])
	if cache != nil {
		cache.Store(key, h)
	}

	return h, nil
}

// canonicalJSON re-encodes JSON with sorted object keys. Numbers keep their literal form.
func canonicalJSON(b []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return json.Marshal(v)
}
