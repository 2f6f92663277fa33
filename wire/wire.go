// Package wire implements the framed request/response envelope exchanged
// between a worker and the master: GetWeights/SetWeights/UpdWeights
// requests, their typed responses, and the generic success/error
// responses. Every message reuses package codec's int/string primitives
// for its fields rather than introducing a second serialization format.
package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dagtrain/dagtrain/codec"
)

// ErrVersionMismatch is returned by the master when a Set/UpdWeights
// request names a stale version token; the worker recovers by re-pulling
// current weights and retrying.
var ErrVersionMismatch = errors.New("wire: version mismatch")

// MaxChunkSize bounds a single streamed buffer, per the framing contract.
const MaxChunkSize = 16 << 20

// Kind tags which message an envelope carries.
type Kind byte

const (
	KindGetWeights Kind = iota + 1
	KindGetWeightsResponse
	KindSetWeights
	KindSetWeightsResponse
	KindUpdWeights
	KindUpdWeightsResponse
	KindSuccessResponse
	KindErrorResponse
)

// GetWeights requests a chunk of the authoritative weights starting at
// Position. Version is the caller's last-observed version, or "" if it has
// none yet.
type GetWeights struct {
	Version  string
	Position uint64
}

// GetWeightsResponse carries one chunk of the weights buffer.
type GetWeightsResponse struct {
	Version  string
	Buffer   []byte
	Complete bool
}

// SetWeights streams a full replacement for the weights buffer.
type SetWeights struct {
	Version  string
	Buffer   []byte
	Complete bool
}

// SetWeightsResponse echoes the version now in effect.
type SetWeightsResponse struct {
	Version string
}

// UpdWeights streams a delta to be added into the authoritative weights.
type UpdWeights struct {
	Version  string
	Buffer   []byte
	Complete bool
}

// UpdWeightsResponse echoes the version now in effect.
type UpdWeightsResponse struct {
	Version string
}

// SuccessResponse is returned for operations with nothing else to report.
type SuccessResponse struct{}

// ErrorResponse reports a typed failure; Status classifies it per the
// taxonomy in the error-handling design (ShapeMismatch, VersionMismatch, ...).
type ErrorResponse struct {
	Status  uint32
	Message string
}

// Envelope is the tagged union written to and read from the wire. Exactly
// one of its fields is non-nil, selected by Kind.
type Envelope struct {
	Kind Kind

	GetWeights         *GetWeights
	GetWeightsResponse *GetWeightsResponse
	SetWeights         *SetWeights
	SetWeightsResponse *SetWeightsResponse
	UpdWeights         *UpdWeights
	UpdWeightsResponse *UpdWeightsResponse
	Success            *SuccessResponse
	Error              *ErrorResponse
}

func writeChunked(w io.Writer, version string, buf []byte, complete bool) error {
	if err := codec.WriteString(w, version); err != nil {
		return err
	}
	if err := codec.WriteInt(w, int32(len(buf))); err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	var completeByte [1]byte
	if complete {
		completeByte[0] = 1
	}
	_, err := w.Write(completeByte[:])
	return err
}

func readChunked(r io.Reader) (version string, buf []byte, complete bool, err error) {
	version, err = codec.ReadString(r)
	if err != nil {
		return "", nil, false, err
	}
	n, err := codec.ReadInt(r)
	if err != nil {
		return "", nil, false, err
	}
	if n < 0 || n > MaxChunkSize {
		return "", nil, false, fmt.Errorf("%w: chunk size %d exceeds MaxChunkSize", codec.ErrCodec, n)
	}
	buf = make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", nil, false, fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}
	var completeByte [1]byte
	if _, err := io.ReadFull(r, completeByte[:]); err != nil {
		return "", nil, false, fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}
	return version, buf, completeByte[0] != 0, nil
}

// WriteEnvelope encodes e to w: its message body, not yet length-prefixed.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	if _, err := w.Write([]byte{byte(e.Kind)}); err != nil {
		return err
	}
	switch e.Kind {
	case KindGetWeights:
		if err := codec.WriteString(w, e.GetWeights.Version); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, e.GetWeights.Position)
	case KindGetWeightsResponse:
		return writeChunked(w, e.GetWeightsResponse.Version, e.GetWeightsResponse.Buffer, e.GetWeightsResponse.Complete)
	case KindSetWeights:
		return writeChunked(w, e.SetWeights.Version, e.SetWeights.Buffer, e.SetWeights.Complete)
	case KindSetWeightsResponse:
		return codec.WriteString(w, e.SetWeightsResponse.Version)
	case KindUpdWeights:
		return writeChunked(w, e.UpdWeights.Version, e.UpdWeights.Buffer, e.UpdWeights.Complete)
	case KindUpdWeightsResponse:
		return codec.WriteString(w, e.UpdWeightsResponse.Version)
	case KindSuccessResponse:
		return nil
	case KindErrorResponse:
		if err := binary.Write(w, binary.LittleEndian, e.Error.Status); err != nil {
			return err
		}
		return codec.WriteString(w, e.Error.Message)
	default:
		return fmt.Errorf("wire: unknown envelope kind %d", e.Kind)
	}
}

// ReadEnvelope decodes an Envelope written by WriteEnvelope.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}
	e := &Envelope{Kind: Kind(kindByte[0])}
	switch e.Kind {
	case KindGetWeights:
		version, err := codec.ReadString(r)
		if err != nil {
			return nil, err
		}
		var pos uint64
		if err := binary.Read(r, binary.LittleEndian, &pos); err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrCodec, err)
		}
		e.GetWeights = &GetWeights{Version: version, Position: pos}
	case KindGetWeightsResponse:
		version, buf, complete, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		e.GetWeightsResponse = &GetWeightsResponse{Version: version, Buffer: buf, Complete: complete}
	case KindSetWeights:
		version, buf, complete, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		e.SetWeights = &SetWeights{Version: version, Buffer: buf, Complete: complete}
	case KindSetWeightsResponse:
		version, err := codec.ReadString(r)
		if err != nil {
			return nil, err
		}
		e.SetWeightsResponse = &SetWeightsResponse{Version: version}
	case KindUpdWeights:
		version, buf, complete, err := readChunked(r)
		if err != nil {
			return nil, err
		}
		e.UpdWeights = &UpdWeights{Version: version, Buffer: buf, Complete: complete}
	case KindUpdWeightsResponse:
		version, err := codec.ReadString(r)
		if err != nil {
			return nil, err
		}
		e.UpdWeightsResponse = &UpdWeightsResponse{Version: version}
	case KindSuccessResponse:
		e.Success = &SuccessResponse{}
	case KindErrorResponse:
		var status uint32
		if err := binary.Read(r, binary.LittleEndian, &status); err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrCodec, err)
		}
		msg, err := codec.ReadString(r)
		if err != nil {
			return nil, err
		}
		e.Error = &ErrorResponse{Status: status, Message: msg}
	default:
		return nil, fmt.Errorf("%w: unknown envelope kind %d", codec.ErrCodec, e.Kind)
	}
	return e, nil
}

// WriteFrame writes e as a 4-byte little-endian length prefix followed by
// its encoded body, and flushes w if it is a *bufio.Writer so the frame
// actually reaches the wire.
func WriteFrame(w io.Writer, e *Envelope) error {
	var body bytes.Buffer
	if err := WriteEnvelope(&body, e); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	if bw, ok := w.(*bufio.Writer); ok {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

// ReadFrame reads one length-prefixed frame and decodes its envelope.
func ReadFrame(r io.Reader) (*Envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxChunkSize+64 {
		return nil, fmt.Errorf("%w: frame length %d too large", codec.ErrCodec, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}
	return ReadEnvelope(bytes.NewReader(body))
}
