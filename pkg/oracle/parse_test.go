package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalResponse(t *testing.T) {
	type verdict struct {
		Relevance string `json:"relevance"`
		NewTopic  string `json:"new_topic"`
	}

	tests := []struct {
		name    string
		raw     string
		want    verdict
		wantErr bool
	}{
		{
			name: "plain JSON",
			raw:  `{"relevance":"relevant","new_topic":""}`,
			want: verdict{Relevance: "relevant"},
		},
		{
			name: "fenced JSON",
			raw:  "```json\n{\"relevance\":\"irrelevant\",\"new_topic\":\"exam stress\"}\n```",
			want: verdict{Relevance: "irrelevant", NewTopic: "exam stress"},
		},
		{
			name: "prose around JSON",
			raw:  "Here is my assessment:\n{\"relevance\":\"slightly_relevant\",\"new_topic\":\"\"}\nHope that helps.",
			want: verdict{Relevance: "slightly_relevant"},
		},
		{
			name:    "no JSON at all",
			raw:     "the reply was broadly on topic",
			wantErr: true,
		},
		{
			name:    "truncated JSON",
			raw:     `{"relevance":"relevant"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got verdict
			err := UnmarshalResponse(tt.raw, &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubOracle struct {
	structuredErr error
	payload       string
}

func (s *stubOracle) Generate(context.Context, string, ...Option) (string, error) {
	return s.payload, nil
}

func (s *stubOracle) GenerateStructured(_ context.Context, _ string, out any, _ ...Option) error {
	if s.structuredErr != nil {
		return s.structuredErr
	}
	return UnmarshalResponse(s.payload, out)
}

func TestStructuredOrDefault(t *testing.T) {
	type label struct {
		Value string `json:"value"`
	}

	ok := &stubOracle{payload: `{"value":"relevant"}`}
	got, usedOracle := StructuredOrDefault(context.Background(), ok, "classify", label{Value: "fallback"})
	assert.True(t, usedOracle)
	assert.Equal(t, "relevant", got.Value)

	broken := &stubOracle{structuredErr: &Error{Op: "generate_structured", Err: errors.New("timeout")}}
	got, usedOracle = StructuredOrDefault(context.Background(), broken, "classify", label{Value: "fallback"})
	assert.False(t, usedOracle)
	assert.Equal(t, "fallback", got.Value)
}
