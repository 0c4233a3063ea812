package model

// Role distinguishes the two kinds of acting identity. Customers act on
// their own bookings only; admins act tenant-wide and bypass the
// self-service policies.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated principal performing an action. Policy code
// branches on it exactly once, centrally, instead of per call site.
type Actor struct {
	Role  Role
	Email string
}

func Customer(email string) Actor {
	return Actor{Role: RoleCustomer, Email: email}
}

func Admin(email string) Actor {
	return Actor{Role: RoleAdmin, Email: email}
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
