package tools

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/servicenow"
)

// ServiceNow collections written or read by the tools
const (
	collectionIncident       = "incident"
	collectionKnowledge      = "kb_knowledge"
	collectionClientScript   = "sys_script_client"
	collectionBusinessRule   = "sys_script"
	collectionSLA            = "contract_sla"
	collectionProducer       = "sc_cat_item_producer"
	collectionVariable       = "item_option_new"
	collectionVariableSet    = "item_option_new_set"
	collectionQuestionChoice = "question_choice"
)

// Catalog variable type codes
const (
	variableTypeChoice = 1
	variableTypeOther  = 2
	variableTypeString = 6
)

type kbArticleRequest struct {
	ShortDescription string `mapstructure:"short_description"`
	ArticleBody      string `mapstructure:"article_body"`
	WorkflowState    string `mapstructure:"workflow_state"`
	KnowledgeBase    string `mapstructure:"kb_knowledge_base"`
}

type clientScriptRequest struct {
	Name       string `mapstructure:"name"`
	Table      string `mapstructure:"table"`
	Script     string `mapstructure:"script"`
	ScriptType string `mapstructure:"script_type"`
	FieldName  string `mapstructure:"field_name"`
	Active     bool   `mapstructure:"active"`
}

type businessRuleRequest struct {
	Name         string `mapstructure:"name"`
	Table        string `mapstructure:"table"`
	Script       string `mapstructure:"script"`
	When         string `mapstructure:"when"`
	ActionInsert bool   `mapstructure:"action_insert"`
	ActionUpdate bool   `mapstructure:"action_update"`
	ActionDelete bool   `mapstructure:"action_delete"`
	ActionQuery  bool   `mapstructure:"action_query"`
	Active       bool   `mapstructure:"active"`
}

type slaDefinitionRequest struct {
	Name            string `mapstructure:"name"`
	Table           string `mapstructure:"table"`
	DurationSeconds int    `mapstructure:"duration_seconds"`
	StartCondition  string `mapstructure:"start_condition"`
	StopCondition   string `mapstructure:"stop_condition"`
	PauseCondition  string `mapstructure:"pause_condition"`
}

type variableRequest struct {
	Name      string   `mapstructure:"name"`
	Label     string   `mapstructure:"label"`
	Type      string   `mapstructure:"type"`
	Choices   []string `mapstructure:"choices"`
	Mandatory bool     `mapstructure:"mandatory"`
}

// typeCode maps a variable type name to its catalog code
func (v variableRequest) typeCode() int {
	switch v.Type {
	case "string":
		return variableTypeString
	case "choice":
		return variableTypeChoice
	default:
		return variableTypeOther
	}
}

type recordProducerRequest struct {
	Name             string            `mapstructure:"name"`
	TableName        string            `mapstructure:"table_name"`
	ShortDescription string            `mapstructure:"short_description"`
	CategorySysID    string            `mapstructure:"category_sys_id"`
	Script           string            `mapstructure:"script"`
	Variables        []variableRequest `mapstructure:"variables"`
}

type variableSetRequest struct {
	Name        string            `mapstructure:"name"`
	Description string            `mapstructure:"description"`
	Variables   []variableRequest `mapstructure:"variables"`
}

type incidentLookup struct {
	Number string `mapstructure:"number"`
	SysID  string `mapstructure:"sys_id"`
}

type updateIncidentRequest struct {
	Number string                 `mapstructure:"number"`
	Fields map[string]interface{} `mapstructure:",remain"`
}

type listIncidentsRequest struct {
	Limit    int    `mapstructure:"limit"`
	Priority string `mapstructure:"priority"`
	State    string `mapstructure:"state"`
}

type smartIncidentRequest struct {
	UnstructuredText string `mapstructure:"unstructured_text"`
}

type smartKBRequest struct {
	SourceContent  string `mapstructure:"source_content"`
	TargetAudience string `mapstructure:"target_audience"`
}

// decodeArguments fills out from the argument map. Fields already set on out
// act as defaults for absent arguments.
func decodeArguments(arguments map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.NewSystemError(errors.ErrCodeUnexpectedPanic, "failed to build argument decoder", err)
	}
	if err := decoder.Decode(arguments); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidParams, "invalid tool arguments", err).
			WithDetails(err.Error())
	}
	return nil
}

// setIfPresent copies a non-empty optional string into fields
func setIfPresent(fields map[string]interface{}, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

// records returns the record store from the current snapshot or a
// configuration error
func (b toolBase) records() (RecordStore, error) {
	return b.services().records()
}

func (s *Services) records() (RecordStore, error) {
	if s.Records != nil {
		return s.Records, nil
	}
	return nil, errors.NewConfigurationError(errors.ErrCodeServiceNowNotConfigured,
		"ServiceNow is not configured. Please set SERVICENOW_INSTANCE, SERVICENOW_USERNAME and SERVICENOW_PASSWORD.")
}

// createdText formats the confirmation for a single created record
func createdText(label string, record servicenow.Record, fallbackName string) string {
	name := record.Display("name")
	if name == "" {
		name = fallbackName
	}
	return fmt.Sprintf("%s created: %s (sys_id: %s)", label, name, record.SysID())
}

// joinNames lists created variable names
func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
