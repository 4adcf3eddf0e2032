package access

// Role names carried in bearer tokens
const (
	RoleIntake     = "intake"
	RoleCaseworker = "caseworker"
	RoleDispatcher = "dispatcher"
	RoleSupervisor = "supervisor"
	RoleOrgAdmin   = "org_admin"
)

var roleCapabilities = map[string][]Capability{
	RoleIntake:     {CanCreateCfs},
	RoleCaseworker: {CanCreateCfs, CanTriageCfs, CanUpdateCfs},
	RoleDispatcher: {CanTriageCfs, CanUpdateCfs, CanDispatchCfs},
	RoleSupervisor: {CanCreateCfs, CanTriageCfs, CanUpdateCfs, CanDeleteCfs, CanDispatchCfs, CanShareCfs},
	RoleOrgAdmin: {
		CanCreateCfs, CanTriageCfs, CanUpdateCfs, CanDeleteCfs,
		CanDispatchCfs, CanShareCfs, CanPublicTrackCfs,
	},
}

// Resolve builds the access context for a profile acting in orgID with the given
// roles. Unknown roles grant nothing.
func Resolve(profileID int64, orgID *int64, roles []string) Context {
	caps := Set{}
	for _, r := range roles {
		for _, c := range roleCapabilities[r] {
			caps[c] = true
		}
	}
	return Context{ProfileID: profileID, OrganizationID: orgID, Capabilities: caps}
}
