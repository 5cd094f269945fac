package auth

// Kind tags an Identity.
type Kind int

const (
	// Anonymous is a caller without a valid session.
	Anonymous Kind = iota
	// Admin is the site owner.
	Admin
	// User is a pseudonymous visitor.
	User
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Admin:
		return "admin"
	case User:
		return "user"
	default:
		return "anonymous"
	}
}

// Identity is the resolved caller. Name and Avatar are the display identity used
// for comments and chat replies. Avatar is empty when none is known.
type Identity struct {
	Kind   Kind
	Name   string
	Avatar string
}

// IsAdmin reports whether the caller is the admin.
func (i Identity) IsAdmin() bool {
	return i.Kind == Admin
}

// Authenticated reports whether the caller holds any valid session.
func (i Identity) Authenticated() bool {
	return i.Kind != Anonymous
}

// AvatarOrNil returns nil for an empty avatar so JSON renders null.
func (i Identity) AvatarOrNil() *string {
	if i.Avatar == "" {
		return nil
	}

	a := i.Avatar

	return &a
}
