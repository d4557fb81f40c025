// Package sanitize validates the restricted markup subset allowed in comment
// text. It is a tolerant tag scanner, not an HTML parser: tag-like tokens are
// matched and checked against an allow-list, nesting and well-formedness are
// deliberately not enforced. Valid text is stored verbatim; nothing is
// escaped or rewritten.
package sanitize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/commentstream/backend/validation"
)

// MaxTextLen is the comment text limit in Unicode code points.
const MaxTextLen = 500

var allowedTags = map[string]bool{
	"i":      true,
	"strong": true,
	"code":   true,
	"a":      true,
}

var anchorAttrs = map[string]bool{
	"href":  true,
	"title": true,
}

var (
	tagRe  = regexp.MustCompile(`<\s*(/?)\s*([a-zA-Z][a-zA-Z0-9]*)([^<>]*?)/?\s*>`)
	attrRe = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9-]*)(?:\s*=\s*"([^"]*)")?`)
)

// Sanitize checks text against the markup rules and returns every violation
// found, in document order. A nil result means the text is acceptable as-is.
func Sanitize(text string) validation.Errors {
	var errs validation.Errors

	if utf8.RuneCountInString(text) > MaxTextLen {
		errs = append(errs, validation.Violation{
			Code:    validation.CodeTooLong,
			Message: fmt.Sprintf("text exceeds %d characters", MaxTextLen),
		})
	}

	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		closing := m[1] == "/"
		name := strings.ToLower(m[2])
		rest := m[3]

		if !allowedTags[name] {
			errs = append(errs, validation.Violation{
				Code:    validation.CodeDisallowedTag,
				Tag:     name,
				Message: fmt.Sprintf("tag <%s> is not allowed", name),
			})
			continue
		}
		if closing {
			// Closing tags carry no attributes worth checking, and pairing
			// with an opener is intentionally not verified.
			continue
		}

		if name == "a" {
			errs = append(errs, checkAnchor(rest)...)
			continue
		}
		for _, attr := range scanAttrs(rest) {
			errs = append(errs, validation.Violation{
				Code:    validation.CodeUnexpectedAttribute,
				Tag:     name,
				Attr:    attr.name,
				Message: fmt.Sprintf("tag <%s> does not accept attribute %q", name, attr.name),
			})
		}
	}

	return errs
}

type attribute struct {
	name  string
	value string
}

func scanAttrs(segment string) []attribute {
	var attrs []attribute
	for _, m := range attrRe.FindAllStringSubmatch(segment, -1) {
		attrs = append(attrs, attribute{name: strings.ToLower(m[1]), value: m[2]})
	}
	return attrs
}

func checkAnchor(segment string) validation.Errors {
	var errs validation.Errors
	hasHref := false

	for _, attr := range scanAttrs(segment) {
		if !anchorAttrs[attr.name] {
			errs = append(errs, validation.Violation{
				Code:    validation.CodeDisallowedAttribute,
				Tag:     "a",
				Attr:    attr.name,
				Message: fmt.Sprintf("attribute %q is not allowed on <a>", attr.name),
			})
			continue
		}
		if attr.name == "href" {
			hasHref = true
			if v, ok := checkHref(attr.value); !ok {
				errs = append(errs, v)
			}
		}
	}

	if !hasHref {
		errs = append(errs, validation.Violation{
			Code:    validation.CodeMissingHref,
			Tag:     "a",
			Message: "<a> requires an href attribute",
		})
	}
	return errs
}

func checkHref(raw string) (validation.Violation, bool) {
	value := strings.TrimSpace(raw)
	unsafe := validation.Violation{
		Code:    validation.CodeUnsafeURL,
		Tag:     "a",
		Attr:    "href",
		Value:   raw,
		Message: fmt.Sprintf("href %q is not a safe URL", raw),
	}
	u, err := url.Parse(value)
	if err != nil {
		return unsafe, false
	}
	if strings.EqualFold(u.Scheme, "javascript") {
		return unsafe, false
	}
	return validation.Violation{}, true
}
