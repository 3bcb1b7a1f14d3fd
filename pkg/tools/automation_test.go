package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-servicenow/pkg/errors"
)

func TestCreateRecordFieldTranslation(t *testing.T) {
	tests := []struct {
		name           string
		tool           string
		args           map[string]interface{}
		wantCollection string
		wantFields     map[string]interface{}
		wantText       string
	}{
		{
			name: "kb article defaults to draft",
			tool: CreateKBArticle,
			args: map[string]interface{}{
				"short_description": "Reset your password",
				"article_body":      "<p>Open the portal.</p>",
			},
			wantCollection: "kb_knowledge",
			wantFields: map[string]interface{}{
				"short_description": "Reset your password",
				"text":              "<p>Open the portal.</p>",
				"workflow_state":    "draft",
			},
			wantText: "KB Article created successfully: NUM0001 (sys_id: id1)",
		},
		{
			name: "kb article with knowledge base",
			tool: CreateKBArticle,
			args: map[string]interface{}{
				"short_description": "VPN setup",
				"article_body":      "<p>Install the client.</p>",
				"workflow_state":    "review",
				"kb_knowledge_base": "a7e8a78bff0221009b20ffffffffff17",
			},
			wantCollection: "kb_knowledge",
			wantFields: map[string]interface{}{
				"short_description": "VPN setup",
				"text":              "<p>Install the client.</p>",
				"workflow_state":    "review",
				"kb_knowledge_base": "a7e8a78bff0221009b20ffffffffff17",
			},
			wantText: "KB Article created successfully: NUM0001 (sys_id: id1)",
		},
		{
			name: "client script",
			tool: CreateClientScript,
			args: map[string]interface{}{
				"name":        "Hide close notes",
				"table":       "incident",
				"script":      "function onLoad() {}",
				"script_type": "onChange",
				"field_name":  "state",
			},
			wantCollection: "sys_script_client",
			wantFields: map[string]interface{}{
				"name":   "Hide close notes",
				"table":  "incident",
				"script": "function onLoad() {}",
				"type":   "onChange",
				"field":  "state",
				"active": true,
			},
			wantText: "Client Script created: Hide close notes (sys_id: id1)",
		},
		{
			name: "client script inactive without field",
			tool: CreateClientScript,
			args: map[string]interface{}{
				"name":        "Warn on submit",
				"table":       "change_request",
				"script":      "function onSubmit() {}",
				"script_type": "onSubmit",
				"active":      false,
			},
			wantCollection: "sys_script_client",
			wantFields: map[string]interface{}{
				"name":   "Warn on submit",
				"table":  "change_request",
				"script": "function onSubmit() {}",
				"type":   "onSubmit",
				"active": false,
			},
			wantText: "Client Script created: Warn on submit (sys_id: id1)",
		},
		{
			name: "business rule defaults",
			tool: CreateBusinessRule,
			args: map[string]interface{}{
				"name":   "Set priority",
				"table":  "incident",
				"script": "current.priority = 1;",
				"when":   "before",
			},
			wantCollection: "sys_script",
			wantFields: map[string]interface{}{
				"name":          "Set priority",
				"collection":    "incident",
				"script":        "current.priority = 1;",
				"when_toggle":   "before",
				"action_insert": true,
				"action_update": false,
				"action_delete": false,
				"action_query":  false,
				"active":        true,
			},
			wantText: "Business Rule created: Set priority (sys_id: id1)",
		},
		{
			name: "business rule overrides",
			tool: CreateBusinessRule,
			args: map[string]interface{}{
				"name":          "Audit deletes",
				"table":         "cmdb_ci",
				"script":        "gs.info('deleted');",
				"when":          "after",
				"action_insert": false,
				"action_delete": true,
			},
			wantCollection: "sys_script",
			wantFields: map[string]interface{}{
				"name":          "Audit deletes",
				"collection":    "cmdb_ci",
				"script":        "gs.info('deleted');",
				"when_toggle":   "after",
				"action_insert": false,
				"action_update": false,
				"action_delete": true,
				"action_query":  false,
				"active":        true,
			},
			wantText: "Business Rule created: Audit deletes (sys_id: id1)",
		},
		{
			name: "sla definition",
			tool: CreateSLADefinition,
			args: map[string]interface{}{
				"name":             "P1 resolution",
				"table":            "incident",
				"duration_seconds": 14400,
				"start_condition":  "priority=1",
				"stop_condition":   "state=6",
			},
			wantCollection: "contract_sla",
			wantFields: map[string]interface{}{
				"name":            "P1 resolution",
				"collection":      "incident",
				"duration":        "PT14400S",
				"start_condition": "priority=1",
				"stop_condition":  "state=6",
			},
			wantText: "SLA Definition created: P1 resolution (sys_id: id1)",
		},
		{
			name: "sla definition with pause",
			tool: CreateSLADefinition,
			args: map[string]interface{}{
				"name":             "P2 response",
				"table":            "incident",
				"duration_seconds": 3600.0,
				"start_condition":  "priority=2",
				"stop_condition":   "state=2",
				"pause_condition":  "state=3",
			},
			wantCollection: "contract_sla",
			wantFields: map[string]interface{}{
				"name":            "P2 response",
				"collection":      "incident",
				"duration":        "PT3600S",
				"start_condition": "priority=2",
				"stop_condition":  "state=2",
				"pause_condition": "state=3",
			},
			wantText: "SLA Definition created: P2 response (sys_id: id1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			tm := newTestManager(t, &Services{Records: store})

			text, isError := call(t, tm, tt.tool, tt.args)

			require.False(t, isError, text)
			assert.Equal(t, tt.wantText, text)

			calls := store.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantCollection, calls[0].Collection)
			assert.Equal(t, tt.wantFields, calls[0].Fields)
		})
	}
}

func TestCreateRecordRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"client script unknown type", CreateClientScript, map[string]interface{}{
			"name": "x", "table": "incident", "script": "s", "script_type": "onHover",
		}},
		{"client script bad table", CreateClientScript, map[string]interface{}{
			"name": "x", "table": "incident/../sys_user", "script": "s", "script_type": "onLoad",
		}},
		{"business rule missing when", CreateBusinessRule, map[string]interface{}{
			"name": "x", "table": "incident", "script": "s",
		}},
		{"sla fractional duration", CreateSLADefinition, map[string]interface{}{
			"name": "x", "table": "incident", "duration_seconds": 1.5,
			"start_condition": "a", "stop_condition": "b",
		}},
		{"sla duration beyond int32", CreateSLADefinition, map[string]interface{}{
			"name": "x", "table": "incident", "duration_seconds": 1e20,
			"start_condition": "a", "stop_condition": "b",
		}},
		{"sla zero duration", CreateSLADefinition, map[string]interface{}{
			"name": "x", "table": "incident", "duration_seconds": 0,
			"start_condition": "a", "stop_condition": "b",
		}},
		{"sla duration as text", CreateSLADefinition, map[string]interface{}{
			"name": "x", "table": "incident", "duration_seconds": "60",
			"start_condition": "a", "stop_condition": "b",
		}},
		{"kb article unknown state", CreateKBArticle, map[string]interface{}{
			"short_description": "x", "article_body": "y", "workflow_state": "retired",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			tm := newTestManager(t, &Services{Records: store})

			text, isError := call(t, tm, tt.tool, tt.args)

			assert.True(t, isError)
			assert.Contains(t, text, "Error: ")
			assert.Empty(t, store.Calls())
		})
	}
}

func TestCreateSLADefinitionRejectsOutOfRangeDuration(t *testing.T) {
	store := &fakeStore{}
	tool := NewCreateSLADefinitionTool(Dependencies{Services: StaticServices(&Services{Records: store})})

	for _, seconds := range []interface{}{1e20, float64(maxDurationSeconds) + 1, -5} {
		_, err := tool.Execute(context.Background(), map[string]interface{}{
			"name": "x", "table": "incident", "duration_seconds": seconds,
			"start_condition": "a", "stop_condition": "b",
		})
		if !errors.HasCode(err, errors.ErrCodeInvalidParams) {
			t.Errorf("duration %v: expected INVALID_PARAMS, got %v", seconds, err)
		}
	}
	assert.Empty(t, store.Calls(), "no SLA is created with an out-of-range duration")
}
