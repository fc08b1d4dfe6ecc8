package types

// Actor identifies who initiated an action: a human user or the platform
// itself. System-initiated work orders and audit entries carry the system
// actor instead of a nullable user reference.
type Actor struct {
	userID string
	system bool
}

// SystemActor returns the platform actor.
func SystemActor() Actor {
	return Actor{system: true}
}

// UserActor returns an actor for a human user.
func UserActor(userID string) Actor {
	return Actor{userID: userID}
}

// IsSystem reports whether the action is system-initiated.
func (a Actor) IsSystem() bool {
	return a.system
}

// UserID returns the user id for human actors, empty for the system actor.
func (a Actor) UserID() string {
	return a.userID
}

func (a Actor) String() string {
	if a.system {
		return "system"
	}
	return a.userID
}
