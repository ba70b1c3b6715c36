package dexcom

import "fmt"

// AuthError is returned when the login is rejected or cannot be completed
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("dexcom login failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError is returned when readings cannot be retrieved or decoded
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("dexcom fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TimeParseError is returned when a WT timestamp does not contain Date(<ms>)
type TimeParseError struct {
	Value string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("unparsable timestamp %q", e.Value)
}
