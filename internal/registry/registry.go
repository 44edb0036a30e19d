// Package registry is the durable checkpoint of a harvest: which CAS numbers
// were fetched and which failed (and why). It is loaded once at startup and
// rewritten after every processed identifier.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/pkg/fsutil"
)

const (
	fieldDone   = "done"
	fieldFailed = "failed"
	// older registries were written with this misspelling
	fieldFailedLegacy = "falied"
)

// FormatError is returned by Load when the checkpoint file exists but does not
// follow the registry schema.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s: %s: %s", e.Path, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("registry %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// file is the on-disk representation.
type file struct {
	Done   []cas.Number          `json:"done"`
	Failed map[cas.Number]string `json:"failed"`
}

type Registry struct {
	done    []cas.Number
	doneSet map[cas.Number]struct{}
	failed  map[cas.Number]string
	writer  fsutil.AtomicWriter
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		doneSet: map[cas.Number]struct{}{},
		failed:  map[cas.Number]string{},
	}
}

// Load reads the registry at path. When no file exists an empty registry is
// created and persisted before returning.
func Load(path string) (*Registry, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		r := New()
		err = r.Persist(path)
		if err != nil {
			return nil, fmt.Errorf("initialize registry: %w", err)
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	decoded, err := decode(path, contents)
	if err != nil {
		return nil, err
	}

	r := New()
	for _, id := range decoded.Done {
		r.appendDone(id)
	}
	for id, reason := range decoded.Failed {
		if r.IsDone(id) {
			continue
		}
		r.failed[id] = reason
	}
	return r, nil
}

func decode(path string, contents []byte) (file, error) {
	var out file

	var fields map[string]json.RawMessage
	err := json.Unmarshal(contents, &fields)
	if err != nil {
		return out, &FormatError{Path: path, Reason: "not a json object", Err: err}
	}
	if fields == nil {
		return out, &FormatError{Path: path, Reason: "not a json object"}
	}

	done, ok := fields[fieldDone]
	if !ok {
		return out, &FormatError{Path: path, Reason: "missing mandatory field 'done'"}
	}
	if !isKind(done, '[') {
		return out, &FormatError{Path: path, Reason: "field 'done' must be a list"}
	}
	err = json.Unmarshal(done, &out.Done)
	if err != nil {
		return out, &FormatError{Path: path, Reason: "field 'done' has an invalid entry", Err: err}
	}

	failed, ok := fields[fieldFailed]
	if !ok {
		failed, ok = fields[fieldFailedLegacy]
	}
	if !ok {
		return out, &FormatError{Path: path, Reason: "missing mandatory field 'failed'"}
	}
	if !isKind(failed, '{') {
		return out, &FormatError{Path: path, Reason: "field 'failed' must be a mapping"}
	}
	err = json.Unmarshal(failed, &out.Failed)
	if err != nil {
		return out, &FormatError{Path: path, Reason: "field 'failed' has an invalid entry", Err: err}
	}

	return out, nil
}

func isKind(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}

func (r *Registry) appendDone(id cas.Number) {
	if _, ok := r.doneSet[id]; ok {
		return
	}
	r.doneSet[id] = struct{}{}
	r.done = append(r.done, id)
}

func (r *Registry) IsDone(id cas.Number) bool {
	_, ok := r.doneSet[id]
	return ok
}

// MarkDone records id as fetched, any previous failure for it is cleared.
func (r *Registry) MarkDone(id cas.Number) {
	r.appendDone(id)
	delete(r.failed, id)
}

// MarkFailed records or overwrites the failure reason for id.
func (r *Registry) MarkFailed(id cas.Number, reason string) {
	r.failed[id] = reason
}

// Forget removes id from both done and failed so the next run fetches it
// again.
func (r *Registry) Forget(id cas.Number) bool {
	_, wasFailed := r.failed[id]
	delete(r.failed, id)

	if _, ok := r.doneSet[id]; !ok {
		return wasFailed
	}
	delete(r.doneSet, id)
	r.done = slices.DeleteFunc(r.done, func(n cas.Number) bool {
		return n == id
	})
	return true
}

// FailureReason returns the recorded reason for a failed id.
func (r *Registry) FailureReason(id cas.Number) (string, bool) {
	reason, ok := r.failed[id]
	return reason, ok
}

// Done returns the fetched ids in the order they completed.
func (r *Registry) Done() []cas.Number {
	return slices.Clone(r.done)
}

// Failed returns the failed ids sorted, with their reasons.
func (r *Registry) Failed() []Failure {
	out := make([]Failure, 0, len(r.failed))
	for id, reason := range r.failed {
		out = append(out, Failure{ID: id, Reason: reason})
	}
	slices.SortFunc(out, func(a, b Failure) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

type Failure struct {
	ID     cas.Number
	Reason string
}

func (r *Registry) Counts() (done, failed int) {
	return len(r.done), len(r.failed)
}

// Persist atomically replaces the file at path with the registry's current
// state. On failure the previous file is left untouched.
func (r *Registry) Persist(path string) error {
	out := file{
		Done:   r.done,
		Failed: r.failed,
	}
	if out.Done == nil {
		out.Done = []cas.Number{}
	}

	contents, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	contents = append(contents, '\n')

	err = r.writer.WriteFile(path, contents, 0o644)
	if err != nil {
		return fmt.Errorf("persist registry: %w", err)
	}
	return nil
}
