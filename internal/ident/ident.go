// Package ident canonicalizes provider item identifiers.
//
// STT reissues ids with and without an embedded date segment, for example
// urn:newsml:stt.fi:20220402:259431 and urn:newsml:stt.fi:259431, optionally
// followed by a version segment. The canonical form drops both.
package ident

import (
	"context"
	"fmt"
	"strings"
)

const (
	datedSegments     = 5
	versionedSegments = 6
	dateSegment       = 3
)

// Normalize strips the date segment (and the version segment, when present)
// from a colon separated id. Ids with any other segment count are returned
// unchanged.
func Normalize(id string) string {
	parts := strings.Split(id, ":")
	switch len(parts) {
	case datedSegments, versionedSegments:
	default:
		return id
	}

	out := make([]string, 0, 4)
	out = append(out, parts[:dateSegment]...)
	out = append(out, parts[dateSegment+1])
	return strings.Join(out, ":")
}

// LastSegment returns the part after the final colon.
func LastSegment(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Candidates returns the distinct forms an id may be stored under, exact first.
func Candidates(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids)*2)
	out := make([]string, 0, len(ids)*2)
	for _, id := range ids {
		for _, c := range []string{id, Normalize(id)} {
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// ExistsFunc reports whether a record is stored under id.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Resolve picks the id an incoming record should be stored under: the exact
// id when a record already exists under it, otherwise the canonical id.
func Resolve(ctx context.Context, id string, exists ExistsFunc) (string, error) {
	canonical := Normalize(id)
	if canonical == id || exists == nil {
		return canonical, nil
	}

	found, err := exists(ctx, id)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", id, err)
	}
	if found {
		return id, nil
	}
	return canonical, nil
}
