//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeStrapi serves the subset of the Strapi v5 REST API the client uses
type fakeStrapi struct {
	mu      sync.Mutex
	entries map[string][]map[string]any
	next    int
	ops     map[string]int
}

func newFakeStrapi(t *testing.T) (*fakeStrapi, *httptest.Server) {
	t.Helper()
	f := &fakeStrapi{entries: map[string][]map[string]any{}, ops: map[string]int{}}
	srv := httptest.NewServer(http.StripPrefix("/api/", http.HandlerFunc(f.serve)))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeStrapi) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer integration-token" {
		http.Error(w, `{"error":{"status":401,"message":"Missing or invalid credentials"}}`, http.StatusUnauthorized)
		return
	}
	collection, docID, _ := strings.Cut(r.URL.Path, "/")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[r.Method+" "+collection]++

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		var out []map[string]any
		for _, e := range f.entries[collection] {
			if f.matches(e, r) {
				out = append(out, e)
			}
		}
		if out == nil {
			out = []map[string]any{}
		}
		writeData(w, out)
	case http.MethodPost:
		data, ok := decodeData(w, r)
		if !ok {
			return
		}
		f.next++
		data["documentId"] = fmt.Sprintf("doc-%d", f.next)
		f.entries[collection] = append(f.entries[collection], data)
		writeData(w, data)
	case http.MethodPut:
		data, ok := decodeData(w, r)
		if !ok {
			return
		}
		for _, e := range f.entries[collection] {
			if e["documentId"] == docID {
				for k, v := range data {
					e[k] = v
				}
				writeData(w, e)
				return
			}
		}
		http.Error(w, `{"error":{"status":404,"message":"Not Found"}}`, http.StatusNotFound)
	case http.MethodDelete:
		kept := f.entries[collection][:0]
		for _, e := range f.entries[collection] {
			if e["documentId"] != docID {
				kept = append(kept, e)
			}
		}
		f.entries[collection] = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// matches applies filters[<key>][$eq] and filters[<key>][$in][n]
func (f *fakeStrapi) matches(e map[string]any, r *http.Request) bool {
	for param, values := range r.URL.Query() {
		if !strings.HasPrefix(param, "filters[") {
			continue
		}
		key := strings.TrimPrefix(param, "filters[")
		key, op, _ := strings.Cut(key, "][")
		switch {
		case strings.HasPrefix(op, "$eq"):
			if fmt.Sprint(e[key]) != values[0] {
				return false
			}
		case strings.HasPrefix(op, "$in"):
			if !inAny(fmt.Sprint(e[key]), r.URL.Query(), "filters["+key+"][$in]") {
				return false
			}
		}
	}
	return true
}

func inAny(v string, q map[string][]string, prefix string) bool {
	for param, values := range q {
		if strings.HasPrefix(param, prefix) {
			for _, candidate := range values {
				if candidate == v {
					return true
				}
			}
		}
	}
	return false
}

func (f *fakeStrapi) all(collection string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.entries[collection]))
	copy(out, f.entries[collection])
	return out
}

func (f *fakeStrapi) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops[op]
}

func decodeData(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data == nil {
		http.Error(w, `{"error":{"status":400,"message":"Missing \"data\" payload"}}`, http.StatusBadRequest)
		return nil, false
	}
	return body.Data, true
}

func writeData(w http.ResponseWriter, data any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "meta": map[string]any{}})
}
