package domain

type Role string

const (
	// User is the default role for storefront customers.
	RoleUser Role = "user"
	// Admin manages the storefront; the auth core only carries the claim.
	RoleAdmin Role = "admin"
)

func IsValidRole(r string) bool {
	return r == string(RoleUser) || r == string(RoleAdmin)
}
