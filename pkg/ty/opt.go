// SPDX-License-Identifier: GPL-3.0-only

// Package ty provides small value helpers shared by the session and config layers.
package ty

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Opt is an optional value. Set records that the value was provided at all;
// Valid is false when it was provided as an explicit null.
type Opt[T any] struct {
	Value T
	Set   bool
	Valid bool
}

// OptWrap returns a present value.
func OptWrap[T any](value T) Opt[T] {
	return Opt[T]{Value: value, Set: true, Valid: true}
}

// Get returns the value and whether it is present.
func (i Opt[T]) Get() (T, bool) {
	return i.Value, i.Set && i.Valid
}

// Or returns the value when present and fallback otherwise.
func (i Opt[T]) Or(fallback T) T {
	if v, ok := i.Get(); ok {
		return v
	}
	return fallback
}

// Merge overrides i with or when or was provided.
func (i *Opt[T]) Merge(or *Opt[T]) {
	if or.Set {
		*i = *or
	}
}

// S sets the value.
func (i *Opt[T]) S(v T) {
	*i = OptWrap(v)
}

// U unsets the value.
func (i *Opt[T]) U() {
	*i = Opt[T]{}
}

func (i *Opt[T]) UnmarshalJSON(data []byte) error {
	i.Set = true
	if string(data) == "null" {
		i.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &i.Value); err != nil {
		return err
	}
	i.Valid = true
	return nil
}

func (i Opt[T]) MarshalJSON() ([]byte, error) {
	if !i.Set || !i.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.Value)
}

// UnmarshalYAML implements yaml.Unmarshaler for Opt[T]
func (i *Opt[T]) UnmarshalYAML(value *yaml.Node) error {
	i.Set = true
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		i.Valid = false
		return nil
	}
	var v T
	if err := value.Decode(&v); err != nil {
		return err
	}
	i.Value = v
	i.Valid = true
	return nil
}

// MarshalYAML implements yaml.Marshaler for Opt[T]
func (i Opt[T]) MarshalYAML() (interface{}, error) {
	if !i.Set || !i.Valid {
		return nil, nil
	}
	return i.Value, nil
}

// IsZero lets yaml omitempty skip unset values.
func (i Opt[T]) IsZero() bool {
	return !i.Set
}
