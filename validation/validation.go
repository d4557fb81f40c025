// Package validation defines the structured violation lists returned to
// callers when user input is rejected. Violations accumulate: a request is
// checked fully and every problem found is reported in order.
package validation

import (
	"fmt"
	"strings"
)

// Violation codes.
const (
	CodeTooLong             = "too_long"
	CodeDisallowedTag       = "disallowed_tag"
	CodeUnexpectedAttribute = "unexpected_attribute"
	CodeDisallowedAttribute = "disallowed_attribute"
	CodeMissingHref         = "missing_href"
	CodeUnsafeURL           = "unsafe_url"
	CodeUnsupportedFormat   = "unsupported_format"
	CodeTooLarge            = "too_large"
	CodeInvalidImage        = "invalid_image"
	CodeInvalidPageSize     = "invalid_page_size"
)

// Violation describes one rejected aspect of the input.
type Violation struct {
	Code    string `json:"code"`
	Tag     string `json:"tag,omitempty"`
	Attr    string `json:"attr,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// Errors is an ordered list of violations. It implements error so that
// component contracts can return it directly.
type Errors []Violation

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// Has reports whether the list contains a violation with the given code.
func (e Errors) Has(code string) bool {
	for _, v := range e {
		if v.Code == code {
			return true
		}
	}
	return false
}
