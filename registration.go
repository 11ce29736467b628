package shutdownguard

// Registration is a pending callback registration started by Guard.WithName.
type Registration struct {
	guard *Guard
	name  string
}

// WithName replaces the (optional) human-readable name of the callback being registered.
func (r *Registration) WithName(name string) *Registration {
	r.name = name
	return r
}

// Register appends the callback to the end of the execution sequence of the Guard
// the registration chain was started from.
func (r *Registration) Register(cb Callback) {
	r.guard.register(r.name, cb)
}
