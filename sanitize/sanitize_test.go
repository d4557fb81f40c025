package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentstream/backend/validation"
)

func TestSanitizePlainText(t *testing.T) {
	assert.Nil(t, Sanitize("hello"))
	assert.Nil(t, Sanitize(""))
	assert.Nil(t, Sanitize("1 < 2 and 3 > 2")) // stray angle brackets are not tags
}

func TestSanitizeAllowedMarkup(t *testing.T) {
	cases := []string{
		"<i>italics</i>",
		"<strong>bold</strong> and <code>x := 1</code>",
		`say <a href="https://example.com">hi</a>`,
		`<a href="https://example.com" title="Example">link</a>`,
		"</i> stray closer passes", // well-formedness is not enforced
		"<I>case insensitive</I>",
	}
	for _, text := range cases {
		assert.Nil(t, Sanitize(text), "expected %q to pass", text)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	text := `<strong>hi</strong> <a href="https://example.com">x</a>`
	require.Nil(t, Sanitize(text))
	// Valid text is stored verbatim, so a second pass sees identical input.
	assert.Nil(t, Sanitize(text))
}

func TestSanitizeTooLong(t *testing.T) {
	errs := Sanitize(strings.Repeat("a", 501))
	require.Len(t, errs, 1)
	assert.Equal(t, validation.CodeTooLong, errs[0].Code)

	// Exactly at the limit is fine, counted in code points not bytes.
	assert.Nil(t, Sanitize(strings.Repeat("é", 500)))
	errs = Sanitize(strings.Repeat("é", 501))
	require.Len(t, errs, 1)
	assert.Equal(t, validation.CodeTooLong, errs[0].Code)
}

func TestSanitizeDisallowedTag(t *testing.T) {
	errs := Sanitize("<script>alert(1)</script>")
	require.NotEmpty(t, errs)
	assert.True(t, errs.Has(validation.CodeDisallowedTag))
	assert.Equal(t, "script", errs[0].Tag)
}

func TestSanitizeUnexpectedAttribute(t *testing.T) {
	errs := Sanitize(`<i class="x">hi</i>`)
	require.Len(t, errs, 1)
	assert.Equal(t, validation.CodeUnexpectedAttribute, errs[0].Code)
	assert.Equal(t, "i", errs[0].Tag)
	assert.Equal(t, "class", errs[0].Attr)
}

func TestSanitizeAnchorRules(t *testing.T) {
	t.Run("missing href", func(t *testing.T) {
		errs := Sanitize(`<a title="x">y</a>`)
		require.Len(t, errs, 1)
		assert.Equal(t, validation.CodeMissingHref, errs[0].Code)
	})

	t.Run("disallowed attribute", func(t *testing.T) {
		errs := Sanitize(`<a href="https://example.com" onclick="steal()">y</a>`)
		require.Len(t, errs, 1)
		assert.Equal(t, validation.CodeDisallowedAttribute, errs[0].Code)
		assert.Equal(t, "onclick", errs[0].Attr)
	})

	t.Run("javascript scheme", func(t *testing.T) {
		errs := Sanitize(`<a href="javascript:alert(1)">x</a>`)
		require.Len(t, errs, 1)
		assert.Equal(t, validation.CodeUnsafeURL, errs[0].Code)
		assert.Equal(t, "javascript:alert(1)", errs[0].Value)
	})

	t.Run("javascript scheme case and whitespace", func(t *testing.T) {
		errs := Sanitize(`<a href="  JavaScript:alert(1) ">x</a>`)
		require.Len(t, errs, 1)
		assert.Equal(t, validation.CodeUnsafeURL, errs[0].Code)
	})

	t.Run("relative and https hrefs pass", func(t *testing.T) {
		assert.Nil(t, Sanitize(`<a href="/threads/1">x</a>`))
		assert.Nil(t, Sanitize(`<a href="https://example.com/a?b=c">x</a>`))
	})
}

func TestSanitizeAccumulatesAllViolations(t *testing.T) {
	errs := Sanitize(`<script>x</script><i style="y">z</i><a>w</a>`)
	// Both the opening and the closing script tags are flagged.
	require.Len(t, errs, 4)
	assert.Equal(t, validation.CodeDisallowedTag, errs[0].Code)
	assert.Equal(t, "script", errs[0].Tag)
	assert.Equal(t, validation.CodeDisallowedTag, errs[1].Code)
	assert.Equal(t, validation.CodeUnexpectedAttribute, errs[2].Code)
	assert.Equal(t, validation.CodeMissingHref, errs[3].Code)
}
