package gate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const DEFAULT_IDENTITY_PATH = "email"

// identityPath pulls a display identifier out of an authenticated user value.
// Segments are matched against map keys, json tags or field names, falling
// back to a case-insensitive match.
type identityPath struct {
	segments []string
}

func parseIdentityPath(path string) (identityPath, error) {
	if strings.TrimSpace(path) == "" {
		return identityPath{}, fmt.Errorf("path is empty")
	}
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return identityPath{}, fmt.Errorf("path %q has an empty segment", path)
		}
	}
	return identityPath{segments: segments}, nil
}

func (p identityPath) String() string {
	return strings.Join(p.segments, ".")
}

func (p identityPath) resolve(user any) (string, bool) {
	cur := user
	for _, seg := range p.segments {
		m, ok := asMap(cur)
		if !ok {
			return "", false
		}
		cur, ok = lookupKey(m, seg)
		if !ok {
			return "", false
		}
	}

	var id string
	switch v := cur.(type) {
	case string:
		id = v
	case json.Number:
		id = v.String()
	case int, int32, int64, uint, uint32, uint64:
		id = fmt.Sprint(v)
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		id = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		id = v.String()
	default:
		return "", false
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

func lookupKey(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// asMap turns maps directly, and structs through a JSON round trip, into a
// generic map.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}
