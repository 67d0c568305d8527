package bridge

// Error is the taxonomy from which every HTTP error response is built:
// NotFound (404), RequestInvalid and AdapterFailure (both 500, per the
// spec's chosen status codes). It is returned like any other Go error, never
// raised as a panic, so the dispatcher never has to guess what went wrong.
type Error struct {
	Code        int
	Description string
}

func (e *Error) Error() string {
	return e.Description
}

// NotFound builds the 404 taxonomy member for an unmatched (path, method).
func NotFound(description string) *Error {
	return &Error{Code: 404, Description: description}
}

// RequestInvalid builds the 500 taxonomy member for a body/query that failed
// the §4.2 validation gates.
func RequestInvalid(description string) *Error {
	return &Error{Code: 500, Description: description}
}

// AdapterFailure builds the 500 taxonomy member for a broker publish
// failure, a reply timeout, or any other unexpected adapter fault.
func AdapterFailure(description string) *Error {
	return &Error{Code: 500, Description: description}
}
