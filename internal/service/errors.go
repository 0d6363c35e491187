package service

// HTTPError pairs a failure with the HTTP status the API layer should answer
// with.
// TODO(future): tying service errors to HTTP is not optimal; revisit if we ever grow a second transport. :)
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string { return e.Wrapped.Error() }

func (e HTTPError) Unwrap() error { return e.Wrapped }

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Wrapped: err}
}
