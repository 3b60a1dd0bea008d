// Package message is a small structural message kernel: components built
// from ordered, named fields that know how to read and write themselves.
// It generalizes the hand-written Serialize/Deserialize pairs the rest of
// this module uses into declarative field lists, the way the GCC conference
// create blocks and the licensing PDUs are shaped in the wire spec they
// implement: a flat sequence of typed fields, some of whose size or
// presence depends on a field read earlier in the same message.
package message

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ravibrenner/godrp/internal/rdperr"
)

// Codec reads or writes one field's wire representation.
type Codec interface {
	ReadFrom(r io.Reader) error
	WriteTo(w io.Writer) error
	// Length reports the byte count WriteTo would produce for the
	// Codec's current value, without writing anything.
	Length() (int, error)
}

// Field pairs a Codec with a name used only for error context.
type Field struct {
	Name  string
	Value Codec
}

// Component is an ordered sequence of fields, read and written in order.
// It is itself a Codec, so components nest.
type Component struct {
	fields []Field
	byName map[string]Codec
}

// NewComponent builds a Component from its ordered fields.
func NewComponent(fields ...Field) *Component {
	c := &Component{
		fields: fields,
		byName: make(map[string]Codec, len(fields)),
	}
	for _, f := range fields {
		c.byName[f.Name] = f.Value
	}
	return c
}

// Get returns the named field's Codec, or nil if no such field exists.
// DynOption callbacks use this to look up a field read earlier in the
// same component.
func (c *Component) Get(name string) Codec {
	return c.byName[name]
}

func (c *Component) ReadFrom(r io.Reader) error {
	for _, f := range c.fields {
		if err := f.Value.ReadFrom(r); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

func (c *Component) WriteTo(w io.Writer) error {
	for _, f := range c.fields {
		if err := f.Value.WriteTo(w); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// Length sums every field's Length, the testable property that
// component.length() equals the byte count write would produce.
func (c *Component) Length() (int, error) {
	total := 0
	for _, f := range c.fields {
		n, err := f.Value.Length()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", f.Name, err)
		}
		total += n
	}
	return total, nil
}

// Bytes returns the component re-serialized to a byte slice.
func Bytes(c Codec) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := c.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal reads src into c.
func Unmarshal(src []byte, c Codec) error {
	return c.ReadFrom(bytes.NewReader(src))
}

// DynOption resolves a field's Codec lazily, once the fields read so far
// are available via owner.Get. This is how a field whose length or shape
// depends on an earlier field (e.g. a length-prefixed blob) is expressed
// without hand-writing the dependency.
type DynOption struct {
	owner   *Component
	resolve func(owner *Component) Codec
	current Codec
}

// Dyn creates a field whose concrete Codec is chosen at read/write time.
func Dyn(owner *Component, resolve func(owner *Component) Codec) *DynOption {
	return &DynOption{owner: owner, resolve: resolve}
}

func (d *DynOption) ReadFrom(r io.Reader) error {
	d.current = d.resolve(d.owner)
	return d.current.ReadFrom(r)
}

func (d *DynOption) WriteTo(w io.Writer) error {
	d.current = d.resolve(d.owner)
	return d.current.WriteTo(w)
}

// Length resolves the field (if not already resolved by a prior
// ReadFrom/WriteTo) and reports its underlying Codec's Length.
func (d *DynOption) Length() (int, error) {
	if d.current == nil {
		d.current = d.resolve(d.owner)
	}
	return d.current.Length()
}

// Value returns the Codec the last ReadFrom/WriteTo/Length resolved to.
func (d *DynOption) Value() Codec {
	return d.current
}

// Cast asserts c's concrete type as T, the typed-view read a Dyn field's
// resolved Codec otherwise has no safe way to expose: a field shaped by
// an earlier tag byte comes back as a Codec, and a caller that needs its
// concrete type (to reach a field only that type has) casts it rather
// than blindly asserting.
func Cast[T Codec](c Codec) (T, error) {
	t, ok := c.(T)
	if !ok {
		var zero T
		return zero, rdperr.Wrap(rdperr.InvalidCast, "type mismatch")
	}
	return t, nil
}

// GetAs looks up name on c and casts it to T in one step.
func GetAs[T Codec](c *Component, name string) (T, error) {
	return Cast[T](c.Get(name))
}
