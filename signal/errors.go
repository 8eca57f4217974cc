package signal

import (
	"errors"
	"fmt"
)

// ErrNilListenerFunc is the panic value of NewListener(nil)
var ErrNilListenerFunc = errors.New("signal: nil listener func")

// PanicError describes a listener that panicked during an emission
type PanicError struct {
	Signal   string
	Listener ListenerID
	Name     string
	Value    any
	Stack    string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("signal %s: listener %s (id=%d) panicked: %v", e.Signal, e.Name, e.Listener, e.Value)
}

// Unwrap exposes the panic value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
