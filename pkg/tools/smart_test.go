package tools

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/logging"
	"mcp-servicenow/pkg/servicenow"
)

func TestSmartIncident(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"Here you go:\n```json\n{\"short_description\": \"VPN drops every hour\", \"urgency\": \"2\", \"impact\": \"3\"}\n```",
	}}
	store := &fakeStore{createFn: func(collection string, fields map[string]interface{}) (servicenow.Record, error) {
		return servicenow.Record{"sys_id": "abc", "number": "INC0010020"}, nil
	}}
	tm := newTestManager(t, &Services{Records: store, Generator: gen})

	text, isError := call(t, tm, SmartIncident, map[string]interface{}{
		"unstructured_text": "my vpn keeps dropping, pretty annoying",
	})

	require.False(t, isError, text)
	assert.Equal(t, "Smart Incident created: INC0010020\nExtracted Data: {\n"+
		"  \"impact\": \"3\",\n"+
		"  \"short_description\": \"VPN drops every hour\",\n"+
		"  \"urgency\": \"2\"\n"+
		"}", text)

	calls := store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "incident", calls[0].Collection)
	assert.Equal(t, map[string]interface{}{
		"short_description": "VPN drops every hour",
		"urgency":           "2",
		"impact":            "3",
	}, calls[0].Fields)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Report: my vpn keeps dropping, pretty annoying")
}

func TestSmartIncidentUnparseableOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "I could not determine the issue."},
		{"array", "[\"not\", \"an\", \"object\"]"},
		{"null", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{responses: []string{tt.raw}}
			store := &fakeStore{}
			tm := newTestManager(t, &Services{Records: store, Generator: gen})

			text, isError := call(t, tm, SmartIncident, map[string]interface{}{"unstructured_text": "help"})

			assert.True(t, isError)
			assert.True(t, strings.HasPrefix(text, "Failed to parse AI response: "), text)
			assert.True(t, strings.HasSuffix(text, "\nRaw Response: "+tt.raw), text)
			assert.Empty(t, store.Calls(), "no incident is created from unparseable output")
		})
	}
}

func TestSmartToolsWithoutGenerator(t *testing.T) {
	for _, tc := range []struct {
		tool string
		args map[string]interface{}
	}{
		{SmartIncident, map[string]interface{}{"unstructured_text": "printer broken"}},
		{SmartKBGenerator, map[string]interface{}{"source_content": "restart the router"}},
	} {
		t.Run(tc.tool, func(t *testing.T) {
			store := &fakeStore{}
			tm := newTestManager(t, &Services{Records: store})

			text, isError := call(t, tm, tc.tool, tc.args)

			assert.True(t, isError)
			assert.Equal(t, "Gemini AI is not configured. Please set GEMINI_API_KEY.", text)
			assert.Empty(t, store.Calls())
		})
	}
}

func TestSmartIncidentGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.NewRemoteError(errors.ErrCodeGenerativeRequestFailed,
		"generative completion request failed", fmt.Errorf("429 Too Many Requests")).
		WithDetails("429 Too Many Requests")}
	store := &fakeStore{}
	tm := newTestManager(t, &Services{Records: store, Generator: gen})

	text, isError := call(t, tm, SmartIncident, map[string]interface{}{"unstructured_text": "help"})

	assert.True(t, isError)
	assert.Equal(t, "Error: generative completion request failed: 429 Too Many Requests", text)
	assert.Empty(t, store.Calls())
}

func TestSmartKBGenerator(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"```html\n<h1>Reconnect the VPN</h1><p>Open the client.</p>\n```",
		"\"Reconnecting the VPN client\"",
	}}
	store := &fakeStore{createFn: func(collection string, fields map[string]interface{}) (servicenow.Record, error) {
		return servicenow.Record{"sys_id": "kb1", "number": "KB0010001"}, nil
	}}
	tm := newTestManager(t, &Services{Records: store, Generator: gen})

	text, isError := call(t, tm, SmartKBGenerator, map[string]interface{}{
		"source_content": "users must reopen the vpn client after sleep",
	})

	require.False(t, isError, text)
	assert.Equal(t, "Smart KB Article created as Draft: KB0010001\nTitle: Reconnecting the VPN client", text)

	calls := store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "kb_knowledge", calls[0].Collection)
	assert.Equal(t, "Reconnecting the VPN client", calls[0].Fields["short_description"])
	assert.Equal(t, "draft", calls[0].Fields["workflow_state"])

	assert.Equal(t, "<h1>Reconnect the VPN</h1><p>Open the client.</p>", calls[0].Fields["text"])

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "Target Audience: General Users")
	assert.Contains(t, gen.prompts[0], "Source: users must reopen the vpn client after sleep")
	assert.Contains(t, gen.prompts[1], "<h1>Reconnect the VPN</h1>")
}

func TestSmartKBGeneratorAudienceAndMarkdown(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"# Badge access\n\nVisit **reception** with photo ID.",
		"Badge access for contractors",
	}}
	store := &fakeStore{}
	tm := newTestManager(t, &Services{Records: store, Generator: gen})

	_, isError := call(t, tm, SmartKBGenerator, map[string]interface{}{
		"source_content":  "contractors get badges at reception",
		"target_audience": "Contractors",
	})
	require.False(t, isError)

	assert.Contains(t, gen.prompts[0], "Target Audience: Contractors")

	calls := store.Calls()
	require.Len(t, calls, 1)
	body, _ := calls[0].Fields["text"].(string)
	assert.Contains(t, body, "<h1>Badge access</h1>")
	assert.Contains(t, body, "<strong>reception</strong>")
}

func TestSmartKBGeneratorKeepsModelHTML(t *testing.T) {
	bodies := []string{
		"<h5>Reset password</h5>\n<section>Open the portal and click reset.</section>",
		`<div class="note"><p>Step one</p><img src="https://example.com/step.png"></div>`,
	}

	for _, body := range bodies {
		gen := &fakeGenerator{responses: []string{"```html\n" + body + "\n```", "Reset password"}}
		store := &fakeStore{}
		tm := newTestManager(t, &Services{Records: store, Generator: gen})

		text, isError := call(t, tm, SmartKBGenerator, map[string]interface{}{"source_content": "reset steps"})
		require.False(t, isError, text)

		calls := store.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "kb_knowledge", calls[0].Collection)
		assert.Equal(t, body, calls[0].Fields["text"])
	}
}

func TestSmartToolsReadServicesOnce(t *testing.T) {
	for _, tc := range []struct {
		tool      string
		args      map[string]interface{}
		responses []string
	}{
		{SmartIncident, map[string]interface{}{"unstructured_text": "printer broken"}, []string{`{"short_description": "Printer broken"}`}},
		{SmartKBGenerator, map[string]interface{}{"source_content": "restart the router"}, []string{"<p>Restart it.</p>", "Restart the router"}},
	} {
		t.Run(tc.tool, func(t *testing.T) {
			store := &fakeStore{}
			reads := 0
			provider := func() *Services {
				reads++
				if reads > 1 {
					// a reload between lookups would hand out an empty snapshot
					return &Services{}
				}
				return &Services{Records: store, Generator: &fakeGenerator{responses: tc.responses}}
			}

			tm := NewToolManager(logging.NewStructuredLogger("test"))
			require.NoError(t, RegisterServiceNowTools(tm, Dependencies{Services: provider}))

			text, isError := call(t, tm, tc.tool, tc.args)

			require.False(t, isError, text)
			assert.Equal(t, 1, reads)
			assert.Len(t, store.Calls(), 1)
		})
	}
}

func TestSmartKBGeneratorEmptyBody(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"```html\n```"}}
	store := &fakeStore{}
	tm := newTestManager(t, &Services{Records: store, Generator: gen})

	text, isError := call(t, tm, SmartKBGenerator, map[string]interface{}{"source_content": "x"})

	assert.True(t, isError)
	assert.Contains(t, text, "Failed to parse AI response: generated article body is empty")
	assert.Empty(t, store.Calls())
	assert.Len(t, gen.prompts, 1, "no title is requested for an empty body")
}

func TestSmartIncidentRejectsOversizedText(t *testing.T) {
	gen := &fakeGenerator{}
	tm := newTestManager(t, &Services{Records: &fakeStore{}, Generator: gen})

	_, isError := call(t, tm, SmartIncident, map[string]interface{}{
		"unstructured_text": strings.Repeat("a", maxUnstructuredText+1),
	})

	assert.True(t, isError)
	assert.Empty(t, gen.prompts)
}
