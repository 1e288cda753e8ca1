package domain

import (
	"testing"
	"time"
)

func TestPermissionMatrix_DefaultAdminHasFullAccess(t *testing.T) {
	m := DefaultPermissionMatrix()
	for _, res := range Resources {
		for _, act := range Actions {
			if !m.Allows(RoleAdmin, res, act) {
				t.Errorf("admin denied %s/%s", res, act)
			}
		}
	}
}

func TestPermissionMatrix_DefaultAgent(t *testing.T) {
	m := DefaultPermissionMatrix()

	cases := []struct {
		res  Resource
		act  Action
		want bool
	}{
		{ResourceLeads, ActionCreate, true},
		{ResourceLeads, ActionDelete, false},
		{ResourceUsers, ActionRead, true},
		{ResourceUsers, ActionDelete, false},
		{ResourceUsers, ActionUpdate, false},
		{ResourceExpenses, ActionUpdate, false},
		{ResourceProjects, ActionCreate, false},
		{ResourceSiteVisits, ActionUpdate, true},
	}
	for _, tc := range cases {
		if got := m.Allows(RoleAgent, tc.res, tc.act); got != tc.want {
			t.Errorf("agent %s/%s: expected %v, got %v", tc.res, tc.act, tc.want, got)
		}
	}
}

func TestPermissionMatrix_UnknownInputsDenied(t *testing.T) {
	m := DefaultPermissionMatrix()

	if m.Allows("guest", ResourceLeads, ActionRead) {
		t.Error("unknown role must be denied")
	}
	if m.Allows(RoleAdmin, "invoices", ActionRead) {
		t.Error("unknown resource must be denied")
	}
	if m.Allows(RoleAdmin, ResourceLeads, "export") {
		t.Error("unknown action must be denied")
	}
	if m.Allows("", "", "") {
		t.Error("empty inputs must be denied")
	}
}

func TestPermissionMatrix_AbsentEntryDenied(t *testing.T) {
	m := NewPermissionMatrix(Rules{
		ResourceLeads: {RoleAdmin: {Read: true}},
	})

	for _, res := range Resources {
		for _, act := range Actions {
			if m.Allows(RoleAgent, res, act) {
				t.Errorf("agent has no entries, but %s/%s allowed", res, act)
			}
			if res != ResourceLeads && m.Allows(RoleAdmin, res, act) {
				t.Errorf("admin has no entry for %s, but %s allowed", res, act)
			}
		}
	}
}

func TestPermissionMatrix_NilMatrixDenies(t *testing.T) {
	var m *PermissionMatrix
	if m.Allows(RoleAdmin, ResourceLeads, ActionRead) {
		t.Fatal("nil matrix must deny")
	}
}

func TestPermissionMatrix_IsolatedFromSourceRules(t *testing.T) {
	rules := Rules{ResourceLeads: {RoleAgent: {Read: true}}}
	m := NewPermissionMatrix(rules)

	rules[ResourceLeads][RoleAgent] = Grant{Read: true, Delete: true}

	if m.Allows(RoleAgent, ResourceLeads, ActionDelete) {
		t.Fatal("matrix must not observe later changes to its source rules")
	}
}

func TestPermissionsFor_MirrorsMatrix(t *testing.T) {
	m := DefaultPermissionMatrix()
	caps := m.PermissionsFor(RoleAgent)

	if len(caps) != len(Resources)*len(Actions) {
		t.Fatalf("expected %d flags, got %d", len(Resources)*len(Actions), len(caps))
	}
	if !caps["canCreateLeads"] {
		t.Error("expected canCreateLeads for agent")
	}
	if caps["canDeleteUsers"] {
		t.Error("expected canDeleteUsers=false for agent")
	}
	if !caps["canUpdateSiteVisits"] {
		t.Error("expected canUpdateSiteVisits for agent")
	}
}

func TestPermissionsFor_UnknownRoleAllFalse(t *testing.T) {
	for key, v := range DefaultPermissionMatrix().PermissionsFor("guest") {
		if v {
			t.Errorf("flag %s must be false for unknown role", key)
		}
	}
}

func TestSession_ActiveAt(t *testing.T) {
	now := mustTime(t, "2026-01-01T10:00:00Z")
	s := &Session{Valid: true, ExpiresAt: now.Add(1)}
	if !s.ActiveAt(now) {
		t.Error("expected active session")
	}
	s.Valid = false
	if s.ActiveAt(now) {
		t.Error("revoked session must be inactive")
	}
	s.Valid = true
	s.ExpiresAt = now
	if s.ActiveAt(now) {
		t.Error("session expiring at now must be inactive")
	}
	var missing *Session
	if missing.ActiveAt(now) {
		t.Error("nil session must be inactive")
	}
}

func mustTime(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return ts
}
