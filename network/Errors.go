package network

import "errors"

// Error implements errors unique to networks
type Error struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errInvalidArchitecture = errors.New("need at least input and output " +
	"layer sizes")

var errInputSizeMismatch = errors.New("input length does not match input " +
	"layer size")

var errShapeMismatch = errors.New("tensor shape does not match network shape")

// IsInvalidArchitecture returns whether or not an error reports that a
// network was constructed with fewer than two layer sizes or with a
// non-positive layer size.
func IsInvalidArchitecture(err error) bool {
	if netErr, ok := err.(*Error); ok {
		err = netErr.Err
	}
	return err == errInvalidArchitecture
}

// IsInputSizeMismatch returns whether or not an error reports that an
// input vector's length disagrees with the network's input layer size.
func IsInputSizeMismatch(err error) bool {
	if netErr, ok := err.(*Error); ok {
		err = netErr.Err
	}
	return err == errInputSizeMismatch
}

// IsShapeMismatch returns whether or not an error reports that a
// supplied parameter tensor's shape disagrees with the network's own.
func IsShapeMismatch(err error) bool {
	if netErr, ok := err.(*Error); ok {
		err = netErr.Err
	}
	return err == errShapeMismatch
}
