package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// UsernameBase builds "first_last" in lower case with all whitespace removed
func UsernameBase(firstName, lastName string) string {
	clean := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), ""))
	}
	return clean(firstName) + "_" + clean(lastName)
}

// UsernameExistsFunc reports whether a username is taken
type UsernameExistsFunc func(ctx context.Context, username string) (bool, error)

// GenerateUsername returns the base username, or the base followed by the
// smallest positive counter that is free. The search only stops early when
// ctx is done. The store's unique constraint remains the final guard against
// concurrent creation.
func GenerateUsername(ctx context.Context, firstName, lastName string, exists UsernameExistsFunc) (string, error) {
	base := UsernameBase(firstName, lastName)
	candidate := base

	for counter := 1; ; counter++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("username search for %q stopped: %w", base, err)
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(counter)
	}
}
