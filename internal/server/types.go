package server

// MultiplyParseError is a query parameter error of /multiply together with
// the HTTP status it maps to.
type MultiplyParseError struct {
	Message    string
	StatusCode int
}

func (e MultiplyParseError) Error() string {
	return e.Message
}
