package game

// Offline is an Actor that left the server. Messages sent to it are dropped.
type Offline struct {
	Player string
}

// Name ...
func (o Offline) Name() string { return o.Player }

// Message ...
func (Offline) Message(string) {}

// Rebind returns the Actor a valid for the View passed. Sessions are only valid within the transaction they
// were obtained in, so a session captured earlier is looked up again. Sessions that have since left are
// returned as Offline.
func Rebind(v View, a Actor) Actor {
	s, ok := a.(Session)
	if !ok {
		return a
	}
	if fresh, ok := v.Session(s.UUID()); ok {
		return fresh
	}
	return Offline{Player: s.Name()}
}
