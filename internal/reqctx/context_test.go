package reqctx

import (
	"context"
	"testing"
)

func TestLogPrefix(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"empty", context.Background(), ""},
		{"rid only", WithRID(context.Background(), "abc"), "[rid=abc]"},
		{"listing only", WithListingID(context.Background(), 7), "[listing=7]"},
		{"both", WithListingID(WithRID(context.Background(), "abc"), 7), "[rid=abc listing=7]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LogPrefix(tt.ctx); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
