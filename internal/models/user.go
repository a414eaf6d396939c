package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleGlobalSuperAdmin UserRole = "GLOBAL_SUPER_ADMIN"
	RoleSchoolAdmin      UserRole = "SCHOOL_ADMIN"
	RoleTeacher          UserRole = "TEACHER"
	RoleStudent          UserRole = "STUDENT"
)

// Staff reports whether the role carries school-staff privileges.
func (r UserRole) Staff() bool {
	return r == RoleGlobalSuperAdmin || r == RoleSchoolAdmin || r == RoleTeacher
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
