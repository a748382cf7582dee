package api

import (
	"encoding/json"
	"math"
	"net/http"
	"reflect"

	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error" groups:"basic"`
	Details map[string]interface{} `json:"details,omitempty" groups:"basic"`
}

var (
	basicGroups    = []string{"basic"}
	detailedGroups = []string{"basic", "detailed"}
)

// writeJSON renders v through sheriff with the given groups, replaces every
// NaN or infinite float with null and encodes the result.
func writeJSON(w http.ResponseWriter, status int, v interface{}, groups []string) {
	tree, err := sheriff.Marshal(&sheriff.Options{Groups: groups}, v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build response")
		status = http.StatusInternalServerError
		tree = map[string]interface{}{"error": "Failed to build response"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(cleanNaN(tree)); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details}, basicGroups)
}

// cleanNaN walks a decoded value tree and replaces non-finite floats with
// nil, descending into maps, slices and pointers. Typed containers that
// sheriff leaves alone are rebuilt as generic ones.
func cleanNaN(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		if f := float64(t); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return t
	case map[string]interface{}:
		for k, x := range t {
			t[k] = cleanNaN(x)
		}
		return t
	case []interface{}:
		for i, x := range t {
			t[i] = cleanNaN(x)
		}
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return cleanNaN(rv.Elem().Interface())
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = cleanNaN(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = cleanNaN(iter.Value().Interface())
		}
		return out
	}
	return v
}
