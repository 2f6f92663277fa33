// Package master implements the parameter server: a TCP listener serving
// concurrent workers that pull the authoritative weights, compute local
// updates, and push deltas back. The accept loop and one-handler-goroutine-
// per-connection shape follows the ollama example's net.Listener/http.Server
// accept-loop idiom (the teacher has no network server), adapted to the
// framed wire.Envelope protocol instead of HTTP.
package master

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/dagtrain/dagtrain/codec"
	"github.com/dagtrain/dagtrain/tensor"
	"github.com/dagtrain/dagtrain/wire"
)

// ChunkSize bounds a single GetWeights response chunk.
const ChunkSize = wire.MaxChunkSize

// Master holds the authoritative weight buffer and a monotonically
// advancing version token. weights, version and counter are guarded by mu;
// the critical section is held only while swapping the buffer or applying a
// completed delta, never during network I/O.
type Master struct {
	mu      sync.Mutex
	weights []byte
	version string
	counter uint64

	log *log.Logger

	mu2     sync.Mutex // guards partial upload reassembly below
	pending map[net.Addr][]byte
}

// New returns a Master with the given initial weights (may be empty, in
// which case the first SetWeights call is accepted unconditionally) and a
// freshly generated version token.
func New(initial []byte, logger *log.Logger) *Master {
	if logger == nil {
		logger = log.New(os.Stderr, "master: ", log.LstdFlags)
	}
	return &Master{
		weights: initial,
		version: uuid.NewString() + "-0",
		log:     logger,
		pending: make(map[net.Addr][]byte),
	}
}

// Version returns the current version token.
func (m *Master) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Weights returns a copy of the current authoritative weight buffer.
func (m *Master) Weights() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.weights))
	copy(out, m.weights)
	return out
}

func (m *Master) bumpVersion() {
	m.counter++
	prefix := m.version
	if i := bytesLastDash(prefix); i >= 0 {
		prefix = prefix[:i]
	}
	m.version = prefix + "-" + strconv.FormatUint(m.counter, 10)
}

func bytesLastDash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			return i
		}
	}
	return -1
}

// ListenAndServe accepts connections on addr until ctx is cancelled. Each
// connection is handled on its own goroutine and carries exactly one
// conversation. A cancelled context closes the listener, which aborts the
// Accept loop and drops any in-flight connections; the caller is
// responsible for persisting Weights() before exiting.
func (m *Master) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("master: listen: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	m.log.Printf("listening on %s, version=%s", addr, m.Version())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("master: accept: %w", err)
			}
		}
		go m.handle(conn)
	}
}

func (m *Master) handle(conn net.Conn) {
	defer conn.Close()
	env, err := wire.ReadFrame(conn)
	if err != nil {
		m.log.Printf("connection %s: read frame: %v", conn.RemoteAddr(), err)
		return
	}
	resp := m.dispatch(conn.RemoteAddr(), env)
	if err := wire.WriteFrame(conn, resp); err != nil {
		m.log.Printf("connection %s: write frame: %v", conn.RemoteAddr(), err)
	}
}

func errorEnvelope(status uint32, msg string) *wire.Envelope {
	return &wire.Envelope{Kind: wire.KindErrorResponse, Error: &wire.ErrorResponse{Status: status, Message: msg}}
}

const (
	statusVersionMismatch uint32 = 1
	statusCodecError      uint32 = 2
)

func (m *Master) dispatch(addr net.Addr, env *wire.Envelope) *wire.Envelope {
	switch env.Kind {
	case wire.KindGetWeights:
		return m.handleGetWeights(env.GetWeights)
	case wire.KindSetWeights:
		return m.handleSetWeights(addr, env.SetWeights)
	case wire.KindUpdWeights:
		return m.handleUpdWeights(addr, env.UpdWeights)
	default:
		return errorEnvelope(statusCodecError, fmt.Sprintf("master: unexpected request kind %d", env.Kind))
	}
}

func (m *Master) handleGetWeights(req *wire.GetWeights) *wire.Envelope {
	m.mu.Lock()
	weights := m.weights
	version := m.version
	m.mu.Unlock()

	pos := int(req.Position)
	if pos > len(weights) {
		pos = len(weights)
	}
	end := pos + ChunkSize
	complete := end >= len(weights)
	if complete {
		end = len(weights)
	}
	return &wire.Envelope{
		Kind: wire.KindGetWeightsResponse,
		GetWeightsResponse: &wire.GetWeightsResponse{
			Version:  version,
			Buffer:   weights[pos:end],
			Complete: complete,
		},
	}
}

// reassemble appends chunk to the in-flight buffer tracked for addr and,
// once complete, returns the full buffer and clears the tracking entry.
// Each connection only ever streams one message, but the streaming
// contract in §4.8 allows multiple non-final chunks before the complete
// one, so chunks are accumulated across calls keyed by the remote address.
func (m *Master) reassemble(addr net.Addr, chunk []byte, complete bool) ([]byte, bool) {
	m.mu2.Lock()
	defer m.mu2.Unlock()
	m.pending[addr] = append(m.pending[addr], chunk...)
	if !complete {
		return nil, false
	}
	full := m.pending[addr]
	delete(m.pending, addr)
	return full, true
}

func (m *Master) handleSetWeights(addr net.Addr, req *wire.SetWeights) *wire.Envelope {
	full, done := m.reassemble(addr, req.Buffer, req.Complete)
	if !done {
		return &wire.Envelope{Kind: wire.KindSuccessResponse, Success: &wire.SuccessResponse{}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Version != "" && m.weights != nil && req.Version != m.version {
		return errorEnvelope(statusVersionMismatch, wire.ErrVersionMismatch.Error())
	}
	m.weights = full
	m.bumpVersion()
	m.log.Printf("SetWeights from %s: %d bytes, version=%s", addr, len(full), m.version)
	return &wire.Envelope{Kind: wire.KindSetWeightsResponse, SetWeightsResponse: &wire.SetWeightsResponse{Version: m.version}}
}

func (m *Master) handleUpdWeights(addr net.Addr, req *wire.UpdWeights) *wire.Envelope {
	full, done := m.reassemble(addr, req.Buffer, req.Complete)
	if !done {
		return &wire.Envelope{Kind: wire.KindSuccessResponse, Success: &wire.SuccessResponse{}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Version != m.version {
		m.log.Printf("UpdWeights from %s: stale version %q (current %q)", addr, req.Version, m.version)
		return errorEnvelope(statusVersionMismatch, wire.ErrVersionMismatch.Error())
	}
	merged, err := applyDelta(m.weights, full)
	if err != nil {
		m.log.Printf("UpdWeights from %s: %v", addr, err)
		return errorEnvelope(statusCodecError, err.Error())
	}
	m.weights = merged
	m.bumpVersion()
	m.log.Printf("UpdWeights from %s: %d bytes, version=%s", addr, len(full), m.version)
	return &wire.Envelope{Kind: wire.KindUpdWeightsResponse, UpdWeightsResponse: &wire.UpdWeightsResponse{Version: m.version}}
}

// applyDelta decodes both buffers as the persisted-weights layout (§4.4/§6)
// and returns base with each delta tensor added in, preserving base's
// variable count and shapes.
func applyDelta(base, delta []byte) ([]byte, error) {
	br := bytes.NewReader(base)
	dr := bytes.NewReader(delta)

	bn, err := codec.ReadInt(br)
	if err != nil {
		return nil, fmt.Errorf("master: applyDelta: base: %w", err)
	}
	dn, err := codec.ReadInt(dr)
	if err != nil {
		return nil, fmt.Errorf("master: applyDelta: delta: %w", err)
	}
	if bn != dn {
		return nil, fmt.Errorf("master: applyDelta: variable count mismatch (base %d, delta %d)", bn, dn)
	}

	var out bytes.Buffer
	if err := codec.WriteInt(&out, bn); err != nil {
		return nil, err
	}
	for i := int32(0); i < bn; i++ {
		bt, err := codec.ReadTensor(br)
		if err != nil {
			return nil, fmt.Errorf("master: applyDelta: base tensor %d: %w", i, err)
		}
		dt, err := codec.ReadTensor(dr)
		if err != nil {
			return nil, fmt.Errorf("master: applyDelta: delta tensor %d: %w", i, err)
		}
		sum := tensor.Add(bt, dt)
		if err := codec.WriteTensor(&out, sum); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}
