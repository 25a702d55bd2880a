package program

import "fmt"

// StatusOK is the code of a successful transition.
const StatusOK ErrorCode = "OK"

// StatusInternal is reported for errors outside the TransitionError taxonomy.
const StatusInternal ErrorCode = "INTERNAL"

// ExitStatus is the result reported to the runtime: success, or a tagged
// error. Runtimes map it onto their own termination convention.
type ExitStatus struct {
	Code ErrorCode `json:"code"`
	Err  error     `json:"-"`
}

// OK reports whether the transition committed.
func (s ExitStatus) OK() bool {
	return s.Code == StatusOK
}

// Message returns the error text, or "" on success.
func (s ExitStatus) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

func (s ExitStatus) String() string {
	if s.Err == nil {
		return string(s.Code)
	}
	return fmt.Sprintf("%s: %v", s.Code, s.Err)
}

// StatusOf converts a Handle result into an ExitStatus.
func StatusOf(err error) ExitStatus {
	if err == nil {
		return ExitStatus{Code: StatusOK}
	}
	code := CodeOf(err)
	if code == "" {
		code = StatusInternal
	}
	return ExitStatus{Code: code, Err: err}
}
