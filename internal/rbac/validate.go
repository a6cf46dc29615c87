package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseUserRecord decodes a stored user record. Any decoding or validation
// problem is reported as ErrMalformedUserRecord.
func ParseUserRecord(raw string) (UserRecord, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UserRecord{}, fmt.Errorf("%w: empty", ErrMalformedUserRecord)
	}
	var user UserRecord
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrMalformedUserRecord, err)
	}
	if err := ValidateUserRecord(user); err != nil {
		return UserRecord{}, err
	}
	return user, nil
}

// ValidateUserRecord checks the required fields of a user record.
func ValidateUserRecord(user UserRecord) error {
	user.Username = strings.TrimSpace(user.Username)
	if err := validate.Struct(user); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedUserRecord, describe(err))
	}
	return nil
}

// ValidatePermissions checks a permission document before it is stored.
func ValidatePermissions(perms FeaturePermissions) error {
	if err := validate.Struct(perms); err != nil {
		return fmt.Errorf("rbac: invalid permissions: %s", describe(err))
	}
	tr := perms.TimeRestrictions
	if tr.Enabled && len(tr.AllowedDays) == 0 {
		return errors.New("rbac: invalid permissions: timeRestrictions.allowedDays required")
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
