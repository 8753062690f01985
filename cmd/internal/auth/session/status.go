package session

// Status is the closed set of states a session record can be in.
type Status string

const (
	// StatusActive marks a session whose refresh token may still rotate.
	StatusActive Status = "ACTIVE"
	// StatusUsed marks a session consumed by exactly one successful rotation.
	StatusUsed Status = "USED"
	// StatusRevoked marks a session killed by logout, expiry, or reuse detection.
	StatusRevoked Status = "REVOKED"
)

// Terminal reports whether no rotation may ever succeed from s again.
func (s Status) Terminal() bool {
	return s == StatusUsed || s == StatusRevoked
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusUsed, StatusRevoked:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal state-machine edge:
//
//	ACTIVE  -> USED     one successful rotation
//	ACTIVE  -> REVOKED  logout, admin revocation, or expiry during refresh
//	USED    -> REVOKED  reuse detection
//
// Terminal states never revert.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusUsed || to == StatusRevoked
	case StatusUsed:
		return to == StatusRevoked
	default:
		return false
	}
}
