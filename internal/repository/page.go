package repository

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidCursor indicates a pagination cursor that this server did not
// issue or that has been mangled in transit.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// EncodeCursor packs the sort key of the last row of a page into an opaque
// token. The listing order is (created_at DESC, id DESC), so the pair is
// enough to resume exactly where the page ended.
func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	return createdAt, parts[1], nil
}

// placeholders substitutes positional parameter numbers into a SQL fragment.
func placeholders(format string, ns ...int) string {
	args := make([]interface{}, len(ns))
	for i, n := range ns {
		args[i] = n
	}
	return fmt.Sprintf(format, args...)
}
