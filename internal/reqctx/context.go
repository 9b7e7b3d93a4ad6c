package reqctx

import (
	"context"
	"fmt"
	"strings"
)

type ctxKey string

const (
	keyRID       ctxKey = "loops_rid"
	keyListingID ctxKey = "loops_listing_id"
)

// WithRID stores the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithListingID stores the listing the request operates on.
func WithListingID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, keyListingID, id)
}

// ListingID returns listing id if present.
func ListingID(ctx context.Context) uint64 {
	v, _ := ctx.Value(keyListingID).(uint64)
	return v
}

// LogPrefix renders the correlation fields for log lines, e.g.
// "[rid=9f1c listing=42]". It is empty when nothing is set.
func LogPrefix(ctx context.Context) string {
	var parts []string
	if rid := RID(ctx); rid != "" {
		parts = append(parts, "rid="+rid)
	}
	if id := ListingID(ctx); id != 0 {
		parts = append(parts, fmt.Sprintf("listing=%d", id))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " ") + "]"
}
