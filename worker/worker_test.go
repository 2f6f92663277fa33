package worker

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dagtrain/dagtrain/master"
	"github.com/dagtrain/dagtrain/training"
)

// fakeTrainer is a minimal training.Trait used to exercise the worker's
// pull/train/push loop without depending on package graph.
type fakeTrainer struct {
	weights []byte
	steps   int32
}

func (f *fakeTrainer) GetWeights() ([]byte, error) { return f.weights, nil }
func (f *fakeTrainer) SetWeights(buf []byte) error {
	f.weights = append([]byte(nil), buf...)
	return nil
}
func (f *fakeTrainer) GetUpdate() ([]byte, error) { return f.weights, nil }
func (f *fakeTrainer) UpdWeights(buf []byte) error {
	f.weights = append([]byte(nil), buf...)
	return nil
}
func (f *fakeTrainer) BatchTrain() error {
	atomic.AddInt32(&f.steps, 1)
	return nil
}

var _ training.Trait = (*fakeTrainer)(nil)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate model registration")
		}
	}()
	factory := func(int) (training.Trait, error) { return nil, nil }
	Register("dup-model-test", factory)
	Register("dup-model-test", factory)
}

func TestWorkerRunsBatchTrainAgainstMaster(t *testing.T) {
	addr := freeAddr(t)
	m := master.New(nil, nil)

	masterCtx, stopMaster := context.WithCancel(context.Background())
	defer stopMaster()
	go m.ListenAndServe(masterCtx, addr)
	time.Sleep(20 * time.Millisecond) // let the listener come up

	trainer := &fakeTrainer{}
	modelName := "worker-test-model"
	Register(modelName, func(idx int) (training.Trait, error) { return trainer, nil })

	w := New(addr, modelName, nil)
	runCtx, runCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer runCancel()
	_ = w.Run(runCtx, 1)

	if atomic.LoadInt32(&trainer.steps) == 0 {
		t.Error("expected at least one BatchTrain call")
	}
}

func TestLookupUnknownModelIsModelLoadError(t *testing.T) {
	w := New("127.0.0.1:0", "no-such-model", nil)
	err := w.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error for an unregistered model")
	}
	var mle *ModelLoadError
	if !asModelLoadError(err, &mle) {
		t.Errorf("expected *ModelLoadError, got %T: %v", err, err)
	}
}

func asModelLoadError(err error, target **ModelLoadError) bool {
	if mle, ok := err.(*ModelLoadError); ok {
		*target = mle
		return true
	}
	return false
}
