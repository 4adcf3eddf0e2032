package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linesmerrill/cfs-intake-api/apperror"
)

func TestRequire(t *testing.T) {
	ac := Context{ProfileID: 1, Capabilities: NewSet(CanCreateCfs)}

	assert.NoError(t, Require(ac, CanCreateCfs))

	err := Require(ac, CanDispatchCfs)
	var ae *apperror.AuthorizationError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, "canDispatchCfs", ae.Capability)
}

func TestRequireScopedChecksCapabilityFirst(t *testing.T) {
	ac := Context{ProfileID: 1}

	_, err := RequireScoped(ac, CanUpdateCfs)
	assert.IsType(t, &apperror.AuthorizationError{}, err)

	ac.Capabilities = NewSet(CanUpdateCfs)
	_, err = RequireScoped(ac, CanUpdateCfs)
	assert.IsType(t, &apperror.OrganizationRequiredError{}, err)

	org := int64(7)
	ac.OrganizationID = &org
	got, err := RequireScoped(ac, CanUpdateCfs)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestResolve(t *testing.T) {
	org := int64(3)
	ac := Resolve(9, &org, []string{RoleIntake, RoleDispatcher, "janitor"})

	assert.Equal(t, int64(9), ac.ProfileID)
	assert.True(t, ac.Has(CanCreateCfs))
	assert.True(t, ac.Has(CanDispatchCfs))
	assert.False(t, ac.Has(CanShareCfs))
	assert.False(t, ac.Has(CanPublicTrackCfs))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithContext(context.Background(), Context{ProfileID: 4})
	ac, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(4), ac.ProfileID)
}
