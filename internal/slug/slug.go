// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package slug derives URL-safe identifiers from free text and resolves
// them to uniqueness against already-stored records.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/olegiv/newsdesk-go/internal/errx"
)

// MaxAttempts bounds the suffix search in Ensure. A store holding this many
// colliding variants of one base slug is treated as pathological.
const MaxAttempts = 100

var (
	// whitespaceRuns matches runs of any whitespace, including tabs and newlines
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// disallowed matches characters outside the slug alphabet
	disallowed = regexp.MustCompile(`[^a-z0-9_-]+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Make converts free text to a URL-friendly slug: transliterate to ASCII,
// strip combining marks, lowercase, hyphenate whitespace runs, drop anything
// outside [a-z0-9_-], collapse hyphen runs, trim hyphens.
//
// The result may be empty when the input has no representable characters;
// callers must substitute a fallback seed in that case.
func Make(s string) string {
	// Transliterate non-Latin scripts to ASCII approximations so titles in
	// e.g. Cyrillic produce readable slugs instead of falling through empty.
	result := unidecode.Unidecode(s)

	// Normalize unicode characters (decompose accents)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ = transform.String(t, result)

	result = strings.ToLower(strings.TrimSpace(result))

	// Replace whitespace runs with single hyphens
	result = whitespaceRuns.ReplaceAllString(result, "-")

	// Remove everything outside the slug alphabet
	result = disallowed.ReplaceAllString(result, "")

	// Replace multiple hyphens with single hyphen
	result = multipleHyphens.ReplaceAllString(result, "-")

	// Trim hyphens from start and end
	result = strings.Trim(result, "-")

	return result
}

// IsValid checks if a string is a valid slug format.
func IsValid(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	if strings.Contains(s, "--") {
		return false
	}

	return true
}

// Checker reports whether a candidate slug is already taken. An excludeID
// greater than zero exempts that record from the check, so a record being
// re-slugged never collides with itself.
type Checker interface {
	Exists(ctx context.Context, slug string, excludeID int64) (bool, error)
}

// Ensure returns base unchanged when it is free, otherwise the first free
// variant among base-1, base-2, … . The search is bounded by MaxAttempts and
// fails with an Exhausted error beyond it.
//
// The check-then-insert window makes this a best-effort pre-check only; the
// unique index on the slug column stays the final authority, and insert-time
// violations are retried by the caller.
func Ensure(ctx context.Context, c Checker, base string, excludeID int64) (string, error) {
	candidate := base
	for attempt := 1; ; attempt++ {
		taken, err := c.Exists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		if attempt >= MaxAttempts {
			return "", errx.E("slug.Ensure", errx.Exhausted,
				fmt.Errorf("no free variant of %q within %d attempts", base, MaxAttempts))
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
}
