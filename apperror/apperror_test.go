package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("narrative", "too short"), MsgValidation},
		{"authorization", &AuthorizationError{Capability: "canDispatchCfs"}, MsgUnauthorized},
		{"org required", &OrganizationRequiredError{}, MsgOrgRequired},
		{"not found", &NotFoundError{Resource: "attachment", ID: 3}, "The requested attachment was not found."},
		{"safe procedure", &StoreProcedureError{Procedure: "cfs_mark_duplicate", Message: "A report cannot duplicate itself.", Safe: true}, "A report cannot duplicate itself."},
		{"unsafe procedure", &StoreProcedureError{Procedure: "cfs_triage_call", Message: "deadlock detected", Err: errors.New("pq: deadlock")}, MsgGeneric},
		{"wrapped", fmt.Errorf("triage: %w", &AuthorizationError{}), MsgUnauthorized},
		{"internal", errors.New("dial tcp 10.0.0.4:5432: connection refused"), MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeMessage(tt.err))
		})
	}
}

func TestCompensationFailureUnwrapsToCause(t *testing.T) {
	cause := &StoreProcedureError{Procedure: "cfs_insert_attachment", Message: "Attachment limit reached.", Safe: true}
	err := &CompensationFailure{Resource: "cfs/1/x", Cause: cause, CleanupErr: errors.New("s3 unavailable")}

	var spe *StoreProcedureError
	assert.True(t, errors.As(err, &spe))
	assert.Equal(t, "Attachment limit reached.", SafeMessage(err))
	assert.Contains(t, err.Error(), "s3 unavailable")
}

func TestValidationErrorKeepsFirstMessage(t *testing.T) {
	ve := &ValidationError{}
	assert.True(t, ve.Empty())
	ve.Add("notify_target", "first")
	ve.Add("notify_target", "second")
	assert.False(t, ve.Empty())
	assert.Equal(t, "first", ve.Fields["notify_target"])
	assert.Equal(t, "validation failed: notify_target: first", ve.Error())
}
