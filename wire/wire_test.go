package wire

import (
	"bytes"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	cases := []*Envelope{
		{Kind: KindGetWeights, GetWeights: &GetWeights{Version: "v1", Position: 42}},
		{Kind: KindGetWeightsResponse, GetWeightsResponse: &GetWeightsResponse{Version: "v1", Buffer: []byte{1, 2, 3}, Complete: true}},
		{Kind: KindSetWeights, SetWeights: &SetWeights{Version: "", Buffer: []byte{9, 9}, Complete: false}},
		{Kind: KindSetWeightsResponse, SetWeightsResponse: &SetWeightsResponse{Version: "v2"}},
		{Kind: KindUpdWeights, UpdWeights: &UpdWeights{Version: "v2", Buffer: []byte{}, Complete: true}},
		{Kind: KindUpdWeightsResponse, UpdWeightsResponse: &UpdWeightsResponse{Version: "v3"}},
		{Kind: KindSuccessResponse, Success: &SuccessResponse{}},
		{Kind: KindErrorResponse, Error: &ErrorResponse{Status: 7, Message: "boom"}},
	}

	for _, env := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, env); err != nil {
			t.Fatalf("WriteFrame(kind=%d): %v", env.Kind, err)
		}
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame(kind=%d): %v", env.Kind, err)
		}
		if got.Kind != env.Kind {
			t.Errorf("kind: got %d, want %d", got.Kind, env.Kind)
		}
	}
}

func TestGetWeightsResponseFieldsSurvive(t *testing.T) {
	env := &Envelope{Kind: KindGetWeightsResponse, GetWeightsResponse: &GetWeightsResponse{
		Version: "abc-3", Buffer: []byte("payload"), Complete: false,
	}}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, env); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetWeightsResponse.Version != "abc-3" || string(got.GetWeightsResponse.Buffer) != "payload" || got.GetWeightsResponse.Complete {
		t.Errorf("got %+v", got.GetWeightsResponse)
	}
}
