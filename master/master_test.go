package master

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dagtrain/dagtrain/codec"
	"github.com/dagtrain/dagtrain/tensor"
	"github.com/dagtrain/dagtrain/wire"
)

func encodeWeights(t *testing.T, values ...float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := codec.WriteInt(&buf, int32(len(values))); err != nil {
		t.Fatal(err)
	}
	for _, v := range values {
		if err := codec.WriteTensor(&buf, tensor.New(1, 1, []float64{v})); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func decodeSingleWeight(t *testing.T, buf []byte) float64 {
	t.Helper()
	r := bytes.NewReader(buf)
	if _, err := codec.ReadInt(r); err != nil {
		t.Fatal(err)
	}
	tt, err := codec.ReadTensor(r)
	if err != nil {
		t.Fatal(err)
	}
	return tt.At(0, 0)
}

func startTestMaster(t *testing.T, initial []byte) (addr string, m *Master, stop func()) {
	t.Helper()
	m = New(initial, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go m.handle(conn)
		}
	}()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	return ln.Addr().String(), m, func() { cancel() }
}

func getWeights(t *testing.T, addr string) (buf []byte, version string) {
	t.Helper()
	var pos uint64
	for {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		if err := wire.WriteFrame(conn, &wire.Envelope{Kind: wire.KindGetWeights, GetWeights: &wire.GetWeights{Position: pos}}); err != nil {
			t.Fatal(err)
		}
		resp, err := wire.ReadFrame(conn)
		conn.Close()
		if err != nil {
			t.Fatal(err)
		}
		buf = append(buf, resp.GetWeightsResponse.Buffer...)
		version = resp.GetWeightsResponse.Version
		pos += uint64(len(resp.GetWeightsResponse.Buffer))
		if resp.GetWeightsResponse.Complete {
			return
		}
	}
}

func setWeights(t *testing.T, addr, version string, buf []byte) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := wire.WriteFrame(conn, &wire.Envelope{Kind: wire.KindSetWeights, SetWeights: &wire.SetWeights{Version: version, Buffer: buf, Complete: true}}); err != nil {
		t.Fatal(err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind == wire.KindErrorResponse {
		t.Fatalf("SetWeights failed: %s", resp.Error.Message)
	}
	return resp.SetWeightsResponse.Version
}

func updWeights(t *testing.T, addr, version string, buf []byte) (*wire.Envelope, error) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := wire.WriteFrame(conn, &wire.Envelope{Kind: wire.KindUpdWeights, UpdWeights: &wire.UpdWeights{Version: version, Buffer: buf, Complete: true}}); err != nil {
		t.Fatal(err)
	}
	return wire.ReadFrame(conn)
}

func TestGetWeightsRoundTrip(t *testing.T) {
	initial := encodeWeights(t, 1, 2, 3)
	addr, _, stop := startTestMaster(t, initial)
	defer stop()

	buf, _ := getWeights(t, addr)
	if !bytes.Equal(buf, initial) {
		t.Errorf("got %v, want %v", buf, initial)
	}
}

func TestSetWeightsThenGetWeightsReflectsUpdate(t *testing.T) {
	addr, _, stop := startTestMaster(t, nil)
	defer stop()

	next := encodeWeights(t, 5, 6)
	version := setWeights(t, addr, "", next)
	if version == "" {
		t.Fatal("expected a non-empty version after SetWeights")
	}

	got, gotVersion := getWeights(t, addr)
	if !bytes.Equal(got, next) {
		t.Errorf("weights mismatch: got %v, want %v", got, next)
	}
	if gotVersion != version {
		t.Errorf("version mismatch: got %q, want %q", gotVersion, version)
	}
}

func TestUpdWeightsStaleVersionRejected(t *testing.T) {
	addr, _, stop := startTestMaster(t, nil)
	defer stop()

	version := setWeights(t, addr, "", encodeWeights(t, 0))
	resp, err := updWeights(t, addr, "stale-version", encodeWeights(t, 1))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != wire.KindErrorResponse {
		t.Fatalf("expected error response for stale version, got kind %d", resp.Kind)
	}
	_ = version
}

func TestThreeWorkersUpdWeightsSumDeltas(t *testing.T) {
	addr, m, stop := startTestMaster(t, nil)
	defer stop()

	base := setWeights(t, addr, "", encodeWeights(t, 10))

	var mu sync.Mutex
	version := base
	deltas := []float64{1, 2, 3}

	var wg sync.WaitGroup
	for _, d := range deltas {
		wg.Add(1)
		go func(delta float64) {
			defer wg.Done()
			for {
				mu.Lock()
				v := version
				mu.Unlock()
				resp, err := updWeights(t, addr, v, encodeWeights(t, delta))
				if err != nil {
					t.Error(err)
					return
				}
				if resp.Kind == wire.KindUpdWeightsResponse {
					mu.Lock()
					version = resp.UpdWeightsResponse.Version
					mu.Unlock()
					return
				}
				// version mismatch: re-fetch and retry
				_, newVersion := getWeights(t, addr)
				mu.Lock()
				version = newVersion
				mu.Unlock()
				time.Sleep(time.Millisecond)
			}
		}(d)
	}
	wg.Wait()

	final, _ := getWeights(t, addr)
	got := decodeSingleWeight(t, final)
	want := 10.0
	for _, d := range deltas {
		want += d
	}
	if got != want {
		t.Errorf("final weight: got %v, want %v", got, want)
	}
	_ = m
}
