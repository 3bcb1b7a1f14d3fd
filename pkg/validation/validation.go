package validation

import (
	"fmt"
	"regexp"
	"strings"

	"mcp-servicenow/pkg/errors"
)

var (
	sysIDPattern      = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	collectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	fieldNamePattern  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// queryOperators are the encoded-query separators that would let a value
// introduce additional clauses into sysparm_query
var queryOperators = []string{"^", "\n", "\r"}

// ValidateSysID checks that id is a 32 character hexadecimal record identifier
func ValidateSysID(id string) error {
	if id == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidIdentifier, "sys_id cannot be empty", nil)
	}
	if !sysIDPattern.MatchString(id) {
		return errors.NewValidationError(errors.ErrCodeInvalidIdentifier,
			fmt.Sprintf("invalid sys_id %q: expected 32 hexadecimal characters", id), nil).
			WithContext("sys_id", id)
	}
	return nil
}

// ValidateQueryValue checks that value can be embedded in an encoded query
// without changing its structure
func ValidateQueryValue(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidQueryValue,
			fmt.Sprintf("%s cannot be empty", field), nil)
	}
	for _, op := range queryOperators {
		if strings.Contains(value, op) {
			return errors.NewValidationError(errors.ErrCodeInvalidQueryValue,
				fmt.Sprintf("%s contains a reserved query character", field), nil).
				WithContext("field", field)
		}
	}
	return nil
}

// ValidateCollection checks a table name carried as a field value, such as the
// table a script or SLA applies to
func ValidateCollection(collection string) error {
	if !collectionPattern.MatchString(collection) {
		return errors.NewValidationError(errors.ErrCodeInvalidIdentifier,
			fmt.Sprintf("invalid table name %q", collection), nil)
	}
	return nil
}

// ValidateFieldName checks a catalog variable or field name
func ValidateFieldName(name string) error {
	if !fieldNamePattern.MatchString(name) {
		return errors.NewValidationError(errors.ErrCodeInvalidIdentifier,
			fmt.Sprintf("invalid field name %q: use letters, digits and underscores", name), nil)
	}
	return nil
}

// EqualsClause builds a single field=value encoded-query clause
func EqualsClause(field, value string) (string, error) {
	if err := ValidateQueryValue(field, value); err != nil {
		return "", err
	}
	return field + "=" + value, nil
}
