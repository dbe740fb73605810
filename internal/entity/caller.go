package entity

type Role string

const (
	RoleCustomer Role = "customer"
	RoleCook     Role = "cook"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleCook || r == RoleAdmin
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   string
	Role Role
	Name string
}
