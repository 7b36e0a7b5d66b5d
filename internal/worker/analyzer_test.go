package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pcm(samples ...int16) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestEnergyFromPCM(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    float64
		wantErr error
	}{
		{name: "silence", data: pcm(0, 0, 0, 0), want: 0},
		{name: "full scale square", data: pcm(math.MinInt16, math.MinInt16), want: 1},
		{name: "half scale", data: pcm(16384, -16384), want: 0.5},
		{name: "empty", data: nil, wantErr: errNoSamples},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := energyFromPCM(bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("energy: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreviewAnalyzer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    []byte
		wantErr string
	}{
		{name: "non-200", status: http.StatusForbidden, wantErr: "preview fetch status 403"},
		{name: "not an mp3", status: http.StatusOK, body: []byte("definitely not audio")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}))
			defer ts.Close()

			_, err := NewPreviewAnalyzer(ts.Client()).AnalyzePreview(context.Background(), ts.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != "" && !bytes.Contains([]byte(err.Error()), []byte(tt.wantErr)) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}
