package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/klasnova/klasnova-api/internal/models"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

// AccessGuard is the single capability check consumed by every state
// transition and result operation: given the actor's claims and the owning
// school of a resource, it yields allow or a forbidden error. Keeping it in
// one place stops the same tenant rule being re-implemented per handler.
type AccessGuard struct{}

// NewAccessGuard constructs the guard.
func NewAccessGuard() *AccessGuard {
	return &AccessGuard{}
}

// CheckSchool allows GLOBAL_SUPER_ADMIN everywhere and everyone else only
// inside their own school.
func (g *AccessGuard) CheckSchool(claims *models.JWTClaims, schoolID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleGlobalSuperAdmin {
		return nil
	}
	if claims.SchoolID == "" || claims.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another school")
	}
	return nil
}

// CheckRole verifies the actor holds one of the given roles.
// GLOBAL_SUPER_ADMIN always passes.
func (g *AccessGuard) CheckRole(claims *models.JWTClaims, roles ...models.UserRole) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleGlobalSuperAdmin {
		return nil
	}
	for _, role := range roles {
		if claims.Role == role {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform this operation", claims.Role))
}

// CheckStaff is shorthand for school staff (admin or teacher) in the
// resource's school.
func (g *AccessGuard) CheckStaff(claims *models.JWTClaims, schoolID string) error {
	if err := g.CheckRole(claims, models.RoleSchoolAdmin, models.RoleTeacher); err != nil {
		return err
	}
	return g.CheckSchool(claims, schoolID)
}

// parseID rejects malformed identifiers before any storage access.
func parseID(field, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrInvalidID, fmt.Sprintf("invalid %s identifier", field))
	}
	return id.String(), nil
}
