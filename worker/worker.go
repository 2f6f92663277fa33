// Package worker implements the distributed training worker: it loads a
// model implementation from a process-wide registry (the Go-native stand-in
// for the spec's native-plugin ABI, chosen because plugin.Open is
// Linux-only and nothing in the examples pack loads native plugins to
// ground that path on), pulls the master's current weights, runs
// BatchTrain, and pushes its delta back — retrying the pull/push cycle on
// a version mismatch. It follows the teacher's own worker-pool shape in
// internal/parallel (one goroutine per core, private per-goroutine state,
// no locking inside a worker) adapted to drive a training.Trait instead of
// a batch-inference job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"runtime"
	"sync"

	"github.com/dagtrain/dagtrain/training"
	"github.com/dagtrain/dagtrain/wire"
)

// Factory constructs a fresh Training instance for worker index idx. Models
// register a Factory under a name via Register, typically from an init()
// function in the model's package — the same static-registration idiom the
// teacher uses for its ONNX operator and GGUF type registries.
type Factory func(workerIdx int) (training.Trait, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// Register adds factory under name to the process-wide model registry.
// Panics on a duplicate name, matching the teacher's own registration
// helpers (e.g. onnx's operator registry), since a name collision here is
// a build-time wiring bug, not a runtime condition to recover from.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("worker: model %q already registered", name))
	}
	registry[name] = factory
}

// ModelLoadError reports that a named model could not be resolved from the
// registry, or that its Factory returned an error. No Go plugin or native
// shared library is ever loaded. It is always fatal to the worker process.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("worker: load model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

func lookup(name string) (Factory, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factory, ok := registry[name]
	if !ok {
		return nil, &ModelLoadError{Model: name, Err: errors.New("no such model registered")}
	}
	return factory, nil
}

// Worker drives one or more training threads against a master at Addr,
// each running a private Training instance created from Model.
type Worker struct {
	Addr  string
	Model string
	Log   *log.Logger
}

// New returns a Worker that will dial addr and instantiate model via the
// registry.
func New(addr, model string, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(os.Stderr, "worker: ", log.LstdFlags)
	}
	return &Worker{Addr: addr, Model: model, Log: logger}
}

// Run spawns n training goroutines (n <= 0 means runtime.NumCPU(), matching
// the teacher's parallel.DefaultConfig default), each owning a private
// Training instance, and blocks until ctx is cancelled and every goroutine
// has returned. A failure inside one pull/train/push cycle is logged and the
// cycle starts over; it does not end the goroutine. A ModelLoadError is
// fatal and returned immediately without starting any goroutines.
func (w *Worker) Run(ctx context.Context, n int) error {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	factory, err := lookup(w.Model)
	if err != nil {
		return err
	}

	trainers := make([]training.Trait, n)
	for i := range trainers {
		trainer, err := factory(i)
		if err != nil {
			return &ModelLoadError{Model: w.Model, Err: err}
		}
		trainers[i] = trainer
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i, trainer := range trainers {
		wg.Add(1)
		go func(idx int, t training.Trait) {
			defer wg.Done()
			if err := w.loop(ctx, idx, t); err != nil && !errors.Is(err, context.Canceled) {
				errs <- err
			}
		}(i, trainer)
	}
	wg.Wait()
	close(errs)
	var firstErr error
	for err := range errs {
		if firstErr == nil {
			firstErr = err
		}
		w.Log.Printf("thread error: %v", err)
	}
	return firstErr
}

// loop runs the pull/train/push cycle on one thread until ctx is cancelled.
func (w *Worker) loop(ctx context.Context, idx int, t training.Trait) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		version, err := w.pullWeights(t)
		if err != nil {
			w.Log.Printf("thread %d: pull weights: %v", idx, err)
			continue
		}

		if err := t.BatchTrain(); err != nil {
			w.Log.Printf("thread %d: batch train: %v", idx, err)
			continue
		}

		delta, err := t.GetUpdate()
		if err != nil {
			w.Log.Printf("thread %d: get update: %v", idx, err)
			continue
		}

		if err := w.pushUpdate(version, delta); err != nil {
			if errors.Is(err, wire.ErrVersionMismatch) {
				w.Log.Printf("thread %d: version mismatch, re-syncing", idx)
				continue
			}
			w.Log.Printf("thread %d: push update: %v", idx, err)
			continue
		}
	}
}

// pullWeights fetches the full weights buffer via chunked GetWeights and
// loads it into t, returning the version it was fetched at.
func (w *Worker) pullWeights(t training.Trait) (string, error) {
	conn, err := net.Dial("tcp", w.Addr)
	if err != nil {
		return "", fmt.Errorf("worker: dial: %w", err)
	}
	defer conn.Close()

	var buf []byte
	var pos uint64
	var version string
	for {
		if err := wire.WriteFrame(conn, &wire.Envelope{
			Kind:       wire.KindGetWeights,
			GetWeights: &wire.GetWeights{Position: pos},
		}); err != nil {
			return "", fmt.Errorf("worker: send GetWeights: %w", err)
		}
		resp, err := wire.ReadFrame(conn)
		if err != nil {
			return "", fmt.Errorf("worker: recv GetWeightsResponse: %w", err)
		}
		if resp.Kind == wire.KindErrorResponse {
			return "", fmt.Errorf("worker: master error: %s", resp.Error.Message)
		}
		if resp.GetWeightsResponse == nil {
			return "", fmt.Errorf("worker: unexpected response kind %d to GetWeights", resp.Kind)
		}
		buf = append(buf, resp.GetWeightsResponse.Buffer...)
		version = resp.GetWeightsResponse.Version
		pos += uint64(len(resp.GetWeightsResponse.Buffer))
		if resp.GetWeightsResponse.Complete {
			break
		}
		// A chunked GetWeights conversation is one request per chunk, so a
		// fresh connection is opened for each subsequent chunk, matching
		// the spec's "short-lived, one conversation per operation" framing.
		conn.Close()
		conn, err = net.Dial("tcp", w.Addr)
		if err != nil {
			return "", fmt.Errorf("worker: dial: %w", err)
		}
		defer conn.Close()
	}

	if err := t.SetWeights(buf); err != nil {
		return "", fmt.Errorf("worker: set weights: %w", err)
	}
	return version, nil
}

// pushUpdate streams delta to the master via UpdWeights, tagged with the
// version the caller observed at pull time.
func (w *Worker) pushUpdate(version string, delta []byte) error {
	conn, err := net.Dial("tcp", w.Addr)
	if err != nil {
		return fmt.Errorf("worker: dial: %w", err)
	}
	defer conn.Close()

	if err := wire.WriteFrame(conn, &wire.Envelope{
		Kind: wire.KindUpdWeights,
		UpdWeights: &wire.UpdWeights{
			Version:  version,
			Buffer:   delta,
			Complete: true,
		},
	}); err != nil {
		return fmt.Errorf("worker: send UpdWeights: %w", err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("worker: recv UpdWeightsResponse: %w", err)
	}
	if resp.Kind == wire.KindErrorResponse {
		if resp.Error.Message == wire.ErrVersionMismatch.Error() {
			return wire.ErrVersionMismatch
		}
		return fmt.Errorf("worker: master error: %s", resp.Error.Message)
	}
	return nil
}
