package capi

// ErrorSlot receives the message of a failed call. The zero value holds no
// message. Writing a new message replaces the previous one, so a slot reused
// across calls holds at most one message: the most recent failure. A
// successful call leaves the slot untouched.
type ErrorSlot struct {
	msg *string
}

// Set stores msg, releasing any message already held.
func (s *ErrorSlot) Set(msg string) {
	s.msg = &msg
}

// Message returns the held message, if any.
func (s *ErrorSlot) Message() (string, bool) {
	if s == nil || s.msg == nil {
		return "", false
	}
	return *s.msg, true
}

// Len returns the number of messages held: 0 or 1.
func (s *ErrorSlot) Len() int {
	if s == nil || s.msg == nil {
		return 0
	}
	return 1
}

// Clear releases the held message.
func (s *ErrorSlot) Clear() {
	s.msg = nil
}

func (s *ErrorSlot) fail(err error) {
	if s != nil {
		s.Set(err.Error())
	}
}
