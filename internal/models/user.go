package models

// PlatformRole is the account role asserted by the identity provider.
type PlatformRole string

const (
	PlatformAdmin       PlatformRole = "admin"
	PlatformManager     PlatformRole = "manager"
	PlatformEmployer    PlatformRole = "employer"
	PlatformInterviewer PlatformRole = "interviewer"
	PlatformCandidate   PlatformRole = "candidate"
)

// Identity is the authenticated caller, resolved once per request or
// connection from the bearer token and passed explicitly from there on.
type Identity struct {
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Role        PlatformRole `json:"role"`
}

// IsStaff reports whether the identity may administer any room.
func (i Identity) IsStaff() bool {
	return i.Role == PlatformAdmin || i.Role == PlatformManager
}
