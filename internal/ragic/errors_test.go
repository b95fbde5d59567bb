package ragic

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBodySnippet(t *testing.T) {
	assert.Equal(t, "", bodySnippet(nil))
	assert.Equal(t, "not found", bodySnippet([]byte("  not found\n")))

	ascii := strings.Repeat("a", 600)
	assert.Len(t, bodySnippet([]byte(ascii)), maxSnippet)

	// 511 single bytes then a three-byte rune straddling the cut.
	straddling := strings.Repeat("a", maxSnippet-1) + "中文"
	got := bodySnippet([]byte(straddling))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxSnippet-1), got)
}
