// Package codec implements the tiny self-describing binary stream used by
// the distributed training layer to serialize ints, strings, and tensors:
// the wire protocol's envelope fields and the persisted weights layout both
// build on these primitives. Every encoding is little-endian, matching the
// teacher's own encoding/binary.LittleEndian convention throughout its
// serialization package.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dagtrain/dagtrain/tensor"
)

// ErrCodec wraps any malformed-input failure encountered while reading a
// stream: a negative or absurd length prefix, a short read, or the like.
// Callers on the network side treat it as connection-dropping.
var ErrCodec = fmt.Errorf("codec: malformed stream")

// WriteInt writes v as 4 little-endian bytes, signed two's complement.
func WriteInt(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt reads 4 little-endian bytes and returns them as a signed int32.
func ReadInt(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteString writes s as a length-prefixed int followed by its raw bytes.
func WriteString(w io.Writer, s string) error {
	if err := WriteInt(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a length-prefixed string written by WriteString.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("%w: negative string length %d", ErrCodec, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return string(buf), nil
}

// WriteTensor writes t as rows (int), cols (int), then rows*cols values in
// row-major order, each truncated to the wire's fixed-width R type
// (float32). tensor.Tensor itself stays float64 internally for gradient-
// check precision; this truncation only happens at the network/disk
// boundary.
func WriteTensor(w io.Writer, t *tensor.Tensor) error {
	if err := WriteInt(w, int32(t.Rows())); err != nil {
		return err
	}
	if err := WriteInt(w, int32(t.Cols())); err != nil {
		return err
	}
	data := t.Data()
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf)
	return err
}

// ReadTensor reads a tensor written by WriteTensor.
func ReadTensor(r io.Reader) (*tensor.Tensor, error) {
	rows, err := ReadInt(r)
	if err != nil {
		return nil, err
	}
	cols, err := ReadInt(r)
	if err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative tensor shape %dx%d", ErrCodec, rows, cols)
	}
	n := int(rows) * int(cols)
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	return tensor.New(int(rows), int(cols), data), nil
}
