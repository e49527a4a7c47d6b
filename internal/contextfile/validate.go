package contextfile

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a [Document] before it enters a store.
//
// Rules:
//   - ID must be non-empty and must not contain whitespace.
//   - Every tag must be non-empty.
func Validate(doc Document) error {
	var errs []error

	if doc.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	} else if strings.ContainsAny(doc.ID, " \t\r\n") {
		errs = append(errs, fmt.Errorf("id %q must not contain whitespace", doc.ID))
	}

	for i, tag := range doc.Tags {
		if strings.TrimSpace(tag) == "" {
			errs = append(errs, fmt.Errorf("tags[%d]: must not be empty", i))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
