package ai

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/rag-go/internal/domain"
)

func TestDecodeChunk(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    []string
		wantErr error
	}{
		{
			name:  "two choices in order",
			frame: `{"choices":[{"message":{"content":"Hel"}},{"message":{"content":"lo"}}]}`,
			want:  []string{"Hel", "lo"},
		},
		{
			name:  "empty choices list",
			frame: `{"choices":[]}`,
			want:  []string{},
		},
		{
			name:  "empty content is kept",
			frame: `{"choices":[{"message":{"content":""}}]}`,
			want:  []string{""},
		},
		{
			name:  "unknown fields ignored",
			frame: `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"hi"}}]}`,
			want:  []string{"hi"},
		},
		{
			name:    "missing choices",
			frame:   `{"id":"x"}`,
			wantErr: domain.ErrDecode,
		},
		{
			name:    "null choices",
			frame:   `{"choices":null}`,
			wantErr: domain.ErrDecode,
		},
		{
			name:    "missing message",
			frame:   `{"choices":[{"index":0}]}`,
			wantErr: domain.ErrDecode,
		},
		{
			name:    "missing content",
			frame:   `{"choices":[{"message":{"role":"assistant"}}]}`,
			wantErr: domain.ErrDecode,
		},
		{
			name:    "content of wrong type",
			frame:   `{"choices":[{"message":{"content":42}}]}`,
			wantErr: domain.ErrDecode,
		},
		{
			name:    "partial object",
			frame:   `{"choices":[{"mess`,
			wantErr: domain.ErrDecode,
		},
		{
			name:    "invalid utf-8",
			frame:   "{\"choices\":[{\"message\":{\"content\":\"\xff\"}}]}",
			wantErr: domain.ErrEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeChunk([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeChunk() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeChunk() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("DecodeChunk() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeChunkIsIdempotent(t *testing.T) {
	frame := []byte(`{"choices":[{"message":{"content":"same"}}]}`)
	first, err := DecodeChunk(frame)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	second, err := DecodeChunk(frame)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("decode not idempotent (-first +second):\n%s", diff)
	}
}

func TestDecodeRetrieval(t *testing.T) {
	got, err := decodeRetrieval([]byte(`{"data":"retrieved text","extra":1}`))
	if err != nil {
		t.Fatalf("decodeRetrieval() error = %v", err)
	}
	if got != "retrieved text" {
		t.Fatalf("decodeRetrieval() = %q", got)
	}

	if _, err := decodeRetrieval([]byte(`{"result":"x"}`)); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("missing data: error = %v, want decode error", err)
	}
	if _, err := decodeRetrieval([]byte("{\"data\":\"\xfe\"}")); !errors.Is(err, domain.ErrEncoding) {
		t.Fatalf("bad utf-8: error = %v, want encoding error", err)
	}
}
