package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/validation"
)

// choiceOrderStep spaces question choices so they can be reordered later
const choiceOrderStep = 100

// CreateRecordProducerTool creates a record producer and its variables
type CreateRecordProducerTool struct{ toolBase }

// NewCreateRecordProducerTool creates a new CreateRecordProducerTool instance
func NewCreateRecordProducerTool(deps Dependencies) *CreateRecordProducerTool {
	return &CreateRecordProducerTool{toolBase{deps}}
}

func (t *CreateRecordProducerTool) Name() string         { return CreateRecordProducer }
func (t *CreateRecordProducerTool) Definition() mcp.Tool { return createRecordProducerTool }

func (t *CreateRecordProducerTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req recordProducerRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	if err := validation.ValidateCollection(req.TableName); err != nil {
		return "", err
	}
	if err := validateVariables(req.Variables); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		"name":       req.Name,
		"table_name": req.TableName,
	}
	setIfPresent(fields, "short_description", req.ShortDescription)
	setIfPresent(fields, "category", req.CategorySysID)
	setIfPresent(fields, "script", req.Script)

	producer, err := store.Create(ctx, collectionProducer, fields)
	if err != nil {
		return "", err
	}

	names, err := createVariables(ctx, store, "cat_item", producer.SysID(), req.Variables)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s with variables: %s", createdText("Record Producer", producer, req.Name), joinNames(names)), nil
}

// CreateVariableSetTool creates a reusable variable set and its variables
type CreateVariableSetTool struct{ toolBase }

// NewCreateVariableSetTool creates a new CreateVariableSetTool instance
func NewCreateVariableSetTool(deps Dependencies) *CreateVariableSetTool {
	return &CreateVariableSetTool{toolBase{deps}}
}

func (t *CreateVariableSetTool) Name() string         { return CreateVariableSet }
func (t *CreateVariableSetTool) Definition() mcp.Tool { return createVariableSetTool }

func (t *CreateVariableSetTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req variableSetRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	if err := validateVariables(req.Variables); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{"name": req.Name}
	setIfPresent(fields, "description", req.Description)

	set, err := store.Create(ctx, collectionVariableSet, fields)
	if err != nil {
		return "", err
	}

	names, err := createVariables(ctx, store, "variable_set", set.SysID(), req.Variables)
	if err != nil {
		return "", err
	}

	text := createdText("Variable Set", set, req.Name)
	if len(names) > 0 {
		text += " with variables: " + joinNames(names)
	}
	return text, nil
}

func validateVariables(variables []variableRequest) error {
	for _, v := range variables {
		if err := validation.ValidateFieldName(v.Name); err != nil {
			return err
		}
	}
	return nil
}

// createVariables creates each variable under parentID in order. A failure
// leaves the parent and any earlier variables in place; the returned error
// names the parent.
func createVariables(ctx context.Context, store RecordStore, parentField, parentID string, variables []variableRequest) ([]string, error) {
	names := make([]string, 0, len(variables))
	for _, v := range variables {
		fields := map[string]interface{}{
			parentField: parentID,
			"name":      v.Name,
			"type":      v.typeCode(),
			"mandatory": v.Mandatory,
		}
		setIfPresent(fields, "question_text", v.Label)

		created, err := store.Create(ctx, collectionVariable, fields)
		if err != nil {
			return names, withParent(err, parentID)
		}

		if v.typeCode() == variableTypeChoice {
			for i, choice := range v.Choices {
				_, err := store.Create(ctx, collectionQuestionChoice, map[string]interface{}{
					"question": created.SysID(),
					"text":     choice,
					"value":    choice,
					"order":    (i + 1) * choiceOrderStep,
				})
				if err != nil {
					return names, withParent(err, parentID)
				}
			}
		}

		name := created.Display("name")
		if name == "" {
			name = v.Name
		}
		names = append(names, name)
	}
	return names, nil
}

func withParent(err error, parentID string) error {
	if se, ok := errors.As(err); ok {
		se.WithContext(errors.ContextParentID, parentID)
	}
	return err
}
