package message

import (
	"encoding/binary"
	"io"

	"github.com/ravibrenner/godrp/internal/rdperr"
)

// U8 is a single byte field.
type U8 struct{ V uint8 }

func (f *U8) ReadFrom(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	f.V = b[0]
	return nil
}

func (f *U8) WriteTo(w io.Writer) error {
	_, err := w.Write([]byte{f.V})
	return err
}

func (f *U8) Length() (int, error) { return 1, nil }

// U16 is a little-endian 16-bit field, the byte order GCC and licensing
// user data blocks are written in.
type U16 struct{ V uint16 }

func (f *U16) ReadFrom(r io.Reader) error {
	return binary.Read(r, binary.LittleEndian, &f.V)
}

func (f *U16) WriteTo(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, f.V)
}

func (f *U16) Length() (int, error) { return 2, nil }

// U32 is a little-endian 32-bit field.
type U32 struct{ V uint32 }

func (f *U32) ReadFrom(r io.Reader) error {
	return binary.Read(r, binary.LittleEndian, &f.V)
}

func (f *U32) WriteTo(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, f.V)
}

func (f *U32) Length() (int, error) { return 4, nil }

// FixedBytes is a fixed-length byte blob.
type FixedBytes struct {
	V []byte
	N int
}

func NewFixedBytes(n int) *FixedBytes {
	return &FixedBytes{V: make([]byte, n), N: n}
}

func (f *FixedBytes) ReadFrom(r io.Reader) error {
	f.V = make([]byte, f.N)
	_, err := io.ReadFull(r, f.V)
	return err
}

func (f *FixedBytes) WriteTo(w io.Writer) error {
	if len(f.V) != f.N {
		padded := make([]byte, f.N)
		copy(padded, f.V)
		_, err := w.Write(padded)
		return err
	}
	_, err := w.Write(f.V)
	return err
}

func (f *FixedBytes) Length() (int, error) { return f.N, nil }

// VarBytes is a byte blob whose length is supplied by a closure, typically
// reading a sibling field's already-parsed value.
type VarBytes struct {
	V    []byte
	Size func() int
}

func NewVarBytes(size func() int) *VarBytes {
	return &VarBytes{Size: size}
}

func (f *VarBytes) ReadFrom(r io.Reader) error {
	n := f.Size()
	if n < 0 {
		return rdperr.Wrap(rdperr.InvalidSize, "negative length")
	}
	f.V = make([]byte, n)
	if n == 0 {
		return nil
	}
	_, err := io.ReadFull(r, f.V)
	return err
}

func (f *VarBytes) WriteTo(w io.Writer) error {
	_, err := w.Write(f.V)
	return err
}

func (f *VarBytes) Length() (int, error) { return len(f.V), nil }

// Remainder reads every byte left in r, for trailing blobs whose length
// isn't carried on the wire (e.g. a licensing error-info PDU's blob that
// simply runs to the end of its container).
type Remainder struct{ V []byte }

func (f *Remainder) ReadFrom(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.V = b
	return nil
}

func (f *Remainder) WriteTo(w io.Writer) error {
	_, err := w.Write(f.V)
	return err
}

func (f *Remainder) Length() (int, error) { return len(f.V), nil }

// Const checks that the bytes read match Want exactly, the way a GCC
// H.221 key or OID prefix is validated rather than captured.
type Const struct {
	Want []byte
	Kind rdperr.Kind
}

func (f *Const) ReadFrom(r io.Reader) error {
	got := make([]byte, len(f.Want))
	if _, err := io.ReadFull(r, got); err != nil {
		return err
	}
	kind := f.Kind
	if kind == nil {
		kind = rdperr.InvalidConst
	}
	for i := range f.Want {
		if got[i] != f.Want[i] {
			return rdperr.Wrap(kind, "constant mismatch")
		}
	}
	return nil
}

func (f *Const) WriteTo(w io.Writer) error {
	_, err := w.Write(f.Want)
	return err
}

func (f *Const) Length() (int, error) { return len(f.Want), nil }

// Array repeats New() Count() times, the way TS_UD_SC_NET's channel ID
// list and the licensing preamble's product-info blobs repeat a
// sub-structure a server-supplied number of times.
type Array struct {
	Count func() int
	New   func() Codec
	Items []Codec
}

func (f *Array) ReadFrom(r io.Reader) error {
	n := f.Count()
	f.Items = make([]Codec, 0, n)
	for i := 0; i < n; i++ {
		item := f.New()
		if err := item.ReadFrom(r); err != nil {
			return err
		}
		f.Items = append(f.Items, item)
	}
	return nil
}

func (f *Array) WriteTo(w io.Writer) error {
	for _, item := range f.Items {
		if err := item.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (f *Array) Length() (int, error) {
	total := 0
	for _, item := range f.Items {
		n, err := item.Length()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
