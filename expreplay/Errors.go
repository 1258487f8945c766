package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errInsufficientSamples = errors.New("fewer stored transitions than " +
	"requested")

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample a batch of
// the requested size. Callers that want a silent skip instead of an
// error should guard sampling with CanSample.
func IsInsufficientSamples(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errInsufficientSamples
}
