package articles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBody(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "html passes through",
			input:    "<h1>Reset VPN</h1><p>Open the client.</p><ul><li>Step one</li></ul>",
			expected: "<h1>Reset VPN</h1><p>Open the client.</p><ul><li>Step one</li></ul>",
		},
		{
			name:     "sectioning elements are kept",
			input:    "<h5>Reset password</h5>\n<section>Open the portal and click reset.</section>",
			expected: "<h5>Reset password</h5>\n<section>Open the portal and click reset.</section>",
		},
		{
			name:     "attributes and images are kept",
			input:    `<div class="note"><p>Step one</p><img src="https://example.com/a.png" alt="step"></div>`,
			expected: `<div class="note"><p>Step one</p><img src="https://example.com/a.png" alt="step"></div>`,
		},
		{
			name:     "markdown is converted",
			input:    "# Reset VPN\n\nOpen the **client**.\n\n- Step one\n- Step two",
			expected: "<h1>Reset VPN</h1>\n<p>Open the <strong>client</strong>.</p>\n<ul>\n<li>Step one</li>\n<li>Step two</li>\n</ul>",
		},
		{
			name:     "markdown autolink is not markup",
			input:    "See <https://example.com> for details.",
			expected: `<p>See <a href="https://example.com">https://example.com</a> for details.</p>`,
		},
		{
			name:     "language tag from fence is dropped",
			input:    "html\n<p>Body</p>",
			expected: "<p>Body</p>",
		},
		{
			name:     "bare language tag is empty",
			input:    "html",
			expected: "",
		},
		{
			name:     "blank",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.NormalizeBody(tt.input))
		})
	}
}

func TestCleanTitle(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quotes removed", `"How to Reset Your VPN"`, "How to Reset Your VPN"},
		{"markup stripped", "<b>Reset</b> & Unlock", "Reset & Unlock"},
		{"first line only", "\n\nReset VPN\nAlternative title", "Reset VPN"},
		{"markdown heading marker", "## Reset VPN", "Reset VPN"},
		{"whitespace collapsed", "Reset   the\tVPN", "Reset the VPN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.CleanTitle(tt.input))
		})
	}

	long := f.CleanTitle(strings.Repeat("word ", 100))
	assert.LessOrEqual(t, len([]rune(long)), MaxTitleLength)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", Excerpt("abc", 5))
	assert.Equal(t, "ééé", Excerpt("éééé", 3))
}

func TestHasMarkup(t *testing.T) {
	assert.True(t, HasMarkup("<p>x</p>"))
	assert.True(t, HasMarkup("<H1>Title</H1>"))
	assert.True(t, HasMarkup("intro<br/>more"))
	assert.True(t, HasMarkup("<section>body</section>"))
	assert.False(t, HasMarkup("# Title\n\nplain"))
	assert.False(t, HasMarkup("a < b and c > d"))
	assert.False(t, HasMarkup("<https://example.com>"))
}
