package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/servicenow"
	"mcp-servicenow/pkg/validation"
)

const (
	notAvailable = "N/A"
	unassigned   = "Unassigned"

	// newestFirst is used when list_incidents receives no filters
	newestFirst = "ORDERBYDESCsys_created_on"
)

// CreateIncidentTool forwards its arguments unchanged as a new incident
type CreateIncidentTool struct{ toolBase }

// NewCreateIncidentTool creates a new CreateIncidentTool instance
func NewCreateIncidentTool(deps Dependencies) *CreateIncidentTool {
	return &CreateIncidentTool{toolBase{deps}}
}

func (t *CreateIncidentTool) Name() string         { return CreateIncident }
func (t *CreateIncidentTool) Definition() mcp.Tool { return createIncidentTool }

func (t *CreateIncidentTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	store, err := t.records()
	if err != nil {
		return "", err
	}

	fields := make(map[string]interface{}, len(arguments))
	for k, v := range arguments {
		fields[k] = v
	}

	record, err := store.Create(ctx, collectionIncident, fields)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Incident created successfully: %s (sys_id: %s)", record.Number(), record.SysID()), nil
}

// GetIncidentTool renders the status of one incident
type GetIncidentTool struct{ toolBase }

// NewGetIncidentTool creates a new GetIncidentTool instance
func NewGetIncidentTool(deps Dependencies) *GetIncidentTool {
	return &GetIncidentTool{toolBase{deps}}
}

func (t *GetIncidentTool) Name() string         { return GetIncident }
func (t *GetIncidentTool) Definition() mcp.Tool { return getIncidentTool }

func (t *GetIncidentTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req incidentLookup
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	var record servicenow.Record
	key := req.SysID
	if req.SysID != "" {
		if err := validation.ValidateSysID(req.SysID); err != nil {
			return "", err
		}
		record, err = store.Get(ctx, collectionIncident, req.SysID)
	} else {
		key = req.Number
		record, err = findIncident(ctx, store, req.Number)
	}
	if err != nil {
		return "", shapeError(err, key)
	}

	details := []string{
		"Number: " + fieldOr(record, "number", notAvailable),
		"State: " + fieldOr(record, "incident_state", fieldOr(record, "state", notAvailable)),
		"Priority: " + fieldOr(record, "priority", notAvailable),
		"Short Description: " + fieldOr(record, "short_description", notAvailable),
		"Assignment Group: " + referenceDisplay(record, "assignment_group"),
		"Assigned To: " + referenceDisplay(record, "assigned_to"),
		"Updated: " + fieldOr(record, "sys_updated_on", notAvailable),
	}
	return strings.Join(details, "\n"), nil
}

// UpdateIncidentTool patches an incident located by number
type UpdateIncidentTool struct{ toolBase }

// NewUpdateIncidentTool creates a new UpdateIncidentTool instance
func NewUpdateIncidentTool(deps Dependencies) *UpdateIncidentTool {
	return &UpdateIncidentTool{toolBase{deps}}
}

func (t *UpdateIncidentTool) Name() string         { return UpdateIncident }
func (t *UpdateIncidentTool) Definition() mcp.Tool { return updateIncidentTool }

func (t *UpdateIncidentTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req updateIncidentRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	record, err := findIncident(ctx, store, req.Number)
	if err != nil {
		return "", shapeError(err, req.Number)
	}

	fields := req.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if _, err := store.Update(ctx, collectionIncident, record.SysID(), fields); err != nil {
		return "", err
	}
	return fmt.Sprintf("Incident %s updated successfully.", req.Number), nil
}

// ListIncidentsTool summarises recent incidents
type ListIncidentsTool struct{ toolBase }

// NewListIncidentsTool creates a new ListIncidentsTool instance
func NewListIncidentsTool(deps Dependencies) *ListIncidentsTool {
	return &ListIncidentsTool{toolBase{deps}}
}

func (t *ListIncidentsTool) Name() string         { return ListIncidents }
func (t *ListIncidentsTool) Definition() mcp.Tool { return listIncidentsTool }

func (t *ListIncidentsTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	req := listIncidentsRequest{Limit: defaultListLimit}
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	query, err := incidentFilter(req.Priority, req.State)
	if err != nil {
		return "", err
	}

	records, err := store.List(ctx, collectionIncident, servicenow.ListParams{Query: query, Limit: req.Limit})
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, fmt.Sprintf("Found %d recent incidents:", len(records)))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("- %s: %s (State: %s, Priority: %s)",
			r.Number(), r.Display("short_description"), r.Display("state"), r.Display("priority")))
	}
	return strings.Join(lines, "\n"), nil
}

// incidentFilter joins the non-empty equality clauses, or orders by newest
// first when there are none.
func incidentFilter(priority, state string) (string, error) {
	var clauses []string
	for _, f := range []struct{ field, value string }{{"priority", priority}, {"state", state}} {
		if f.value == "" {
			continue
		}
		clause, err := validation.EqualsClause(f.field, f.value)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		return newestFirst, nil
	}
	return strings.Join(clauses, "^"), nil
}

// findIncident resolves an incident by number with a single-result lookup
func findIncident(ctx context.Context, store RecordStore, number string) (servicenow.Record, error) {
	query, err := validation.EqualsClause("number", number)
	if err != nil {
		return nil, err
	}

	records, err := store.List(ctx, collectionIncident, servicenow.ListParams{Query: query, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewNotFoundError(errors.ErrCodeRecordNotFound,
			fmt.Sprintf("Incident %s not found.", number)).
			WithContext("number", number)
	}
	return records[0], nil
}

// shapeError rewrites a response-shape failure so it names the incident
func shapeError(err error, key string) error {
	se, ok := errors.As(err)
	if !ok || se.Code != errors.ErrCodeUnexpectedShape {
		return err
	}
	raw := se.Context[errors.ContextRawResponse]
	return errors.NewRemoteError(errors.ErrCodeUnexpectedShape,
		fmt.Sprintf("Unexpected response format from ServiceNow for incident %s. Got: %v", key, raw), err).
		WithContext(errors.ContextRawResponse, raw)
}

func fieldOr(record servicenow.Record, field, fallback string) string {
	if _, ok := record[field]; !ok {
		return fallback
	}
	if v := record.Display(field); v != "" {
		return v
	}
	return fallback
}

// referenceDisplay shows a reference field only when ServiceNow supplied its display value
func referenceDisplay(record servicenow.Record, field string) string {
	if ref, ok := record[field].(map[string]interface{}); ok {
		if dv, ok := ref["display_value"].(string); ok && dv != "" {
			return dv
		}
	}
	return unassigned
}
