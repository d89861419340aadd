package model

import (
	"fmt"
	"strings"
)

// ParseExtraFlags turns "key=value[,key=value...]" into server arguments of
// the form "--key=value". A key may be given with or without leading dashes.
func ParseExtraFlags(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimLeft(strings.TrimSpace(key), "-")
		if !ok || key == "" {
			return nil, &ValidationError{
				Field:   "flags",
				Message: fmt.Sprintf("invalid flag %q: want key=value", item),
			}
		}
		out = append(out, "--"+key+"="+value)
	}
	return out, nil
}
