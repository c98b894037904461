package rbac

import (
	"sort"
	"strings"
)

// Permission names checked by route guards and services.
const (
	PermAssetsView      = "assets.view"
	PermAssetsManage    = "assets.manage"
	PermRequestsSubmit  = "requests.submit"
	PermRequestsViewOwn = "requests.view_own"
	PermRequestsViewAll = "requests.view_all"
	PermRequestsDecide  = "requests.decide"
	PermUsersManage     = "users.manage"
	PermReportsManage   = "reports.manage"
	PermLookupsView     = "lookups.view"
	PermLookupsManage   = "lookups.manage"
)

var baseGrants = []string{
	PermAssetsView,
	PermRequestsSubmit,
	PermRequestsViewOwn,
}

var adminGrants = []string{
	PermAssetsManage,
	PermRequestsViewAll,
	PermRequestsDecide,
	PermUsersManage,
	PermReportsManage,
	PermLookupsView,
	PermLookupsManage,
}

// Service resolves the permissions granted to each role.
type Service struct {
	grants map[Role]map[string]struct{}
}

// NewService constructs the role policy.
func NewService() *Service {
	grants := map[Role]map[string]struct{}{
		RoleUser:  toSet(baseGrants),
		RoleAdmin: toSet(append(append([]string{}, baseGrants...), adminGrants...)),
	}
	return &Service{grants: grants}
}

// EffectivePermissions returns the sorted permission names granted to role.
func (s *Service) EffectivePermissions(role Role) []string {
	set := s.grants[role]
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// Can reports whether role is granted perm. Unknown roles are granted nothing.
func (s *Service) Can(role Role, perm string) bool {
	if s == nil || !role.Valid() {
		return false
	}
	_, ok := s.grants[role][strings.ToLower(strings.TrimSpace(perm))]
	return ok
}

func toSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
