package tools

import (
	"encoding/json"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names as advertised to the host
const (
	CreateIncident       = "create_incident"
	CreateKBArticle      = "create_kb_article"
	CreateClientScript   = "create_client_script"
	CreateBusinessRule   = "create_business_rule"
	CreateSLADefinition  = "create_sla_definition"
	CreateRecordProducer = "create_record_producer"
	CreateVariableSet    = "create_variable_set"
	GetIncident          = "get_incident"
	ListIncidents        = "list_incidents"
	UpdateIncident       = "update_incident"
	SmartIncident        = "smart_incident"
	SmartKBGenerator     = "smart_kb_generator"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100

	maxUnstructuredText = 20000
	maxSourceContent    = 50000
	maxTargetAudience   = 200

	maxDurationSeconds = math.MaxInt32
)

// integer narrows a number property to whole values
func integer() mcp.PropertyOption {
	return func(schema map[string]interface{}) {
		schema["type"] = "integer"
	}
}

// Variable definitions shared by record producers and variable sets
var variableItems = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"name":      map[string]interface{}{"type": "string"},
		"label":     map[string]interface{}{"type": "string"},
		"type":      map[string]interface{}{"type": "string", "description": "e.g., choice, integer, string, boolean"},
		"choices":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"mandatory": map[string]interface{}{"type": "boolean"},
	},
	"required": []string{"name"},
}

var createIncidentTool = mcp.NewTool(CreateIncident,
	mcp.WithDescription("Create a new incident in ServiceNow"),
	mcp.WithString("short_description", mcp.Required(), mcp.Description("Brief summary of the incident")),
	mcp.WithString("description", mcp.Description("Detailed description of the incident")),
	mcp.WithString("urgency", mcp.Enum("1", "2", "3"), mcp.Description("1=High, 2=Medium, 3=Low")),
	mcp.WithString("impact", mcp.Enum("1", "2", "3"), mcp.Description("1=High, 2=Medium, 3=Low")),
	mcp.WithString("caller_id", mcp.Description("User sys_id or username for the caller")),
	mcp.WithIdempotentHintAnnotation(false),
)

var createKBArticleTool = mcp.NewTool(CreateKBArticle,
	mcp.WithDescription("Create a new Knowledge Base article in ServiceNow"),
	mcp.WithString("short_description", mcp.Required(), mcp.Description("Title of the KB article")),
	mcp.WithString("article_body", mcp.Required(), mcp.Description("HTML content of the article")),
	mcp.WithString("workflow_state", mcp.Enum("draft", "review", "published"), mcp.DefaultString("draft")),
	mcp.WithString("kb_knowledge_base", mcp.Description("Sys_id of the knowledge base")),
	mcp.WithIdempotentHintAnnotation(false),
)

var createClientScriptTool = mcp.NewTool(CreateClientScript,
	mcp.WithDescription("Create a new client-side script in ServiceNow"),
	mcp.WithString("name", mcp.Required(), mcp.Description("Name of the script")),
	mcp.WithString("table", mcp.Required(), mcp.Description("Table name (e.g., incident)")),
	mcp.WithString("script", mcp.Required(), mcp.Description("JavaScript code")),
	mcp.WithString("script_type", mcp.Required(), mcp.Enum("onLoad", "onChange", "onSubmit", "onCellEdit")),
	mcp.WithString("field_name", mcp.Description("Field for onChange script")),
	mcp.WithBoolean("active", mcp.DefaultBool(true)),
	mcp.WithIdempotentHintAnnotation(false),
)

var createBusinessRuleTool = mcp.NewTool(CreateBusinessRule,
	mcp.WithDescription("Create a new business rule in ServiceNow"),
	mcp.WithString("name", mcp.Required(), mcp.Description("Name of the rule")),
	mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
	mcp.WithString("script", mcp.Required(), mcp.Description("JavaScript code (server-side)")),
	mcp.WithString("when", mcp.Required(), mcp.Enum("before", "after", "async", "display")),
	mcp.WithBoolean("action_insert", mcp.DefaultBool(true)),
	mcp.WithBoolean("action_update", mcp.DefaultBool(false)),
	mcp.WithBoolean("action_delete", mcp.DefaultBool(false)),
	mcp.WithBoolean("action_query", mcp.DefaultBool(false)),
	mcp.WithBoolean("active", mcp.DefaultBool(true)),
	mcp.WithIdempotentHintAnnotation(false),
)

var createSLADefinitionTool = mcp.NewTool(CreateSLADefinition,
	mcp.WithDescription("Create a new SLA definition in ServiceNow"),
	mcp.WithString("name", mcp.Required(), mcp.Description("Name of the SLA")),
	mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
	mcp.WithNumber("duration_seconds", mcp.Required(), integer(), mcp.Min(1), mcp.Max(maxDurationSeconds),
		mcp.Description("SLA duration in seconds")),
	mcp.WithString("start_condition", mcp.Required(), mcp.Description("Encoded query for start condition")),
	mcp.WithString("stop_condition", mcp.Required(), mcp.Description("Encoded query for stop condition")),
	mcp.WithString("pause_condition", mcp.Description("Encoded query for pause condition")),
	mcp.WithIdempotentHintAnnotation(false),
)

var createRecordProducerTool = mcp.NewTool(CreateRecordProducer,
	mcp.WithDescription("Create a new record producer (Cat Item) in ServiceNow"),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to create record in")),
	mcp.WithString("short_description"),
	mcp.WithString("category_sys_id"),
	mcp.WithString("script", mcp.Description("Post-submission script")),
	mcp.WithArray("variables", mcp.Items(variableItems)),
	mcp.WithIdempotentHintAnnotation(false),
)

var createVariableSetTool = mcp.NewTool(CreateVariableSet,
	mcp.WithDescription("Create a reusable variable set for catalog items"),
	mcp.WithString("name", mcp.Required()),
	mcp.WithString("description"),
	mcp.WithArray("variables", mcp.Items(variableItems)),
	mcp.WithIdempotentHintAnnotation(false),
)

// get_incident accepts either identifier; a raw schema expresses the anyOf.
var getIncidentTool = mcp.NewToolWithRawSchema(GetIncident,
	"Retrieve details and status of a specific ServiceNow incident",
	json.RawMessage(`{
  "type": "object",
  "properties": {
    "number": {"type": "string", "description": "Incident number (e.g., INC0000001)"},
    "sys_id": {"type": "string", "description": "Internal record ID"}
  },
  "anyOf": [
    {"required": ["number"]},
    {"required": ["sys_id"]}
  ]
}`))

var listIncidentsTool = mcp.NewTool(ListIncidents,
	mcp.WithDescription("List recent incidents with optional filtering"),
	mcp.WithNumber("limit", integer(), mcp.Min(1), mcp.Max(maxListLimit), mcp.DefaultNumber(defaultListLimit),
		mcp.Description("Number of records to return")),
	mcp.WithString("priority", mcp.Enum("1", "2", "3", "4", "5")),
	mcp.WithString("state", mcp.Description("1=New, 2=In Progress, 3=On Hold, etc.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var updateIncidentTool = mcp.NewTool(UpdateIncident,
	mcp.WithDescription("Update fields of an existing ServiceNow incident"),
	mcp.WithString("number", mcp.Required(), mcp.Description("Incident number (e.g., INC0010014)")),
	mcp.WithString("short_description"),
	mcp.WithString("description"),
	mcp.WithString("urgency", mcp.Enum("1", "2", "3")),
	mcp.WithString("impact", mcp.Enum("1", "2", "3")),
	mcp.WithString("state", mcp.Description("State code (e.g., 2 for In Progress)")),
	mcp.WithString("comments", mcp.Description("Add a comment to the incident")),
)

var smartIncidentTool = mcp.NewTool(SmartIncident,
	mcp.WithDescription("Use Gemini AI to analyze unstructured text and create a structured ServiceNow incident"),
	mcp.WithString("unstructured_text", mcp.Required(), mcp.MaxLength(maxUnstructuredText),
		mcp.Description("The user's report or chat log describing the issue")),
	mcp.WithIdempotentHintAnnotation(false),
)

var smartKBGeneratorTool = mcp.NewTool(SmartKBGenerator,
	mcp.WithDescription("Use Gemini AI to generate a professional KB article from a description or raw notes"),
	mcp.WithString("source_content", mcp.Required(), mcp.MaxLength(maxSourceContent),
		mcp.Description("Raw notes, incident description, or instructions to turn into a KB article")),
	mcp.WithString("target_audience", mcp.MaxLength(maxTargetAudience), mcp.Description("e.g., 'End Users', 'IT Staff'")),
	mcp.WithIdempotentHintAnnotation(false),
)
