package service

import "fmt"

// NotFoundError reports that the requested data does not exist: a date
// outside the stored range or an empty dataset.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ValidationError reports a malformed request that was rejected before
// any query ran.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	// ErrNoObservations is returned when the measurement table is empty.
	ErrNoObservations = &NotFoundError{Message: "no observations available"}

	// ErrDateOrder is returned when end is not after start.
	ErrDateOrder = &ValidationError{Message: "Start date should always be less than end date.</br> Correct route format is start date/end date"}

	// ErrInvalidDate is returned for a start segment made only of letters.
	ErrInvalidDate = &ValidationError{Message: "Invalid route or invalid date format."}
)

func startNotFound(start string) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf("Start date %s not found.", start)}
}

func rangeNotFound(start, end string) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf("Start date %s or end date %s not found.", start, end)}
}
