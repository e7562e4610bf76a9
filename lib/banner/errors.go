package banner

import "errors"

var (
	// a required argument was empty, returned before any request is made
	ErrMissingArgument = errors.New("missing argument")
	// unknown operation or invalid school table entry
	ErrConfiguration = errors.New("invalid configuration")
	// unknown school key, also matches ErrConfiguration
	ErrUnsupportedSchool error = unsupportedSchool{}
	// the term search handshake returned no cookie
	ErrSession = errors.New("failed to acquire session")
	// the request never produced a usable response
	ErrTransport = errors.New("transport failure")
	// the body of a json endpoint was not json
	ErrResponseParse = errors.New("failed to parse response")
)

type unsupportedSchool struct{}

func (unsupportedSchool) Error() string { return "unsupported school" }

func (unsupportedSchool) Is(target error) bool {
	return target == ErrConfiguration
}
