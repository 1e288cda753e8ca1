package domain

// Resource is a module of the back office a permission is evaluated against.
type Resource string

const (
	ResourceLeads      Resource = "leads"
	ResourceExpenses   Resource = "expenses"
	ResourceUsers      Resource = "users"
	ResourceProjects   Resource = "projects"
	ResourceSiteVisits Resource = "site_visits"
)

// Action is an operation on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resources lists every resource in a stable order.
var Resources = []Resource{ResourceLeads, ResourceExpenses, ResourceUsers, ResourceProjects, ResourceSiteVisits}

// Actions lists every action in a stable order.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// resourceLabels names resources inside capability flags.
var resourceLabels = map[Resource]string{
	ResourceLeads:      "Leads",
	ResourceExpenses:   "Expenses",
	ResourceUsers:      "Users",
	ResourceProjects:   "Projects",
	ResourceSiteVisits: "SiteVisits",
}

var actionLabels = map[Action]string{
	ActionCreate: "Create",
	ActionRead:   "Read",
	ActionUpdate: "Update",
	ActionDelete: "Delete",
}

// Grant holds the CRUD flags of one (resource, role) entry.
type Grant struct {
	Create bool
	Read   bool
	Update bool
	Delete bool
}

func (g Grant) allows(a Action) bool {
	switch a {
	case ActionCreate:
		return g.Create
	case ActionRead:
		return g.Read
	case ActionUpdate:
		return g.Update
	case ActionDelete:
		return g.Delete
	default:
		return false
	}
}

// Rules is the raw table a PermissionMatrix is built from.
type Rules map[Resource]map[Role]Grant

// PermissionMatrix maps (resource, role) to the allowed actions. It is
// immutable once built and safe to share between goroutines.
type PermissionMatrix struct {
	grants Rules
}

// NewPermissionMatrix copies rules into a new matrix.
func NewPermissionMatrix(rules Rules) *PermissionMatrix {
	grants := make(Rules, len(rules))
	for res, byRole := range rules {
		copied := make(map[Role]Grant, len(byRole))
		for role, g := range byRole {
			copied[role] = g
		}
		grants[res] = copied
	}
	return &PermissionMatrix{grants: grants}
}

// DefaultPermissionMatrix returns the matrix the service ships with.
func DefaultPermissionMatrix() *PermissionMatrix {
	full := Grant{Create: true, Read: true, Update: true, Delete: true}
	return NewPermissionMatrix(Rules{
		ResourceLeads: {
			RoleAdmin: full,
			RoleAgent: {Create: true, Read: true, Update: true},
		},
		ResourceExpenses: {
			RoleAdmin: full,
			RoleAgent: {Create: true, Read: true},
		},
		ResourceUsers: {
			RoleAdmin: full,
			RoleAgent: {Read: true},
		},
		ResourceProjects: {
			RoleAdmin: full,
			RoleAgent: {Read: true},
		},
		ResourceSiteVisits: {
			RoleAdmin: full,
			RoleAgent: {Create: true, Read: true, Update: true},
		},
	})
}

// Allows is the authoritative permission check. Anything not explicitly
// granted is denied, including unknown roles, resources and actions.
func (m *PermissionMatrix) Allows(role Role, resource Resource, action Action) bool {
	if m == nil {
		return false
	}
	byRole, ok := m.grants[resource]
	if !ok {
		return false
	}
	g, ok := byRole[role]
	if !ok {
		return false
	}
	return g.allows(action)
}

// Capabilities is a flat set of UI flags such as "canDeleteUsers".
type Capabilities map[string]bool

// CapabilityKey builds the flag name for a resource/action pair.
func CapabilityKey(resource Resource, action Action) string {
	return "can" + actionLabels[action] + resourceLabels[resource]
}

// PermissionsFor expands the matrix into display flags for role. The result
// is a snapshot for UI gating and must not be used to authorize requests.
func (m *PermissionMatrix) PermissionsFor(role Role) Capabilities {
	caps := make(Capabilities, len(Resources)*len(Actions))
	for _, res := range Resources {
		for _, act := range Actions {
			caps[CapabilityKey(res, act)] = m.Allows(role, res, act)
		}
	}
	return caps
}
