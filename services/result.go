package services

import (
	"schoolRecords/logger"
	"schoolRecords/shared"
)

// Result is what a front end shows after calling an operation.
type Result struct {
	Success bool
	Message string
	Payload any
}

// Present converts an operation outcome into a Result. Domain errors keep
// their message; storage failures get a generic one and are logged.
func Present(payload any, err error, okMessage string) Result {
	if err == nil {
		return Result{Success: true, Message: okMessage, Payload: payload}
	}
	if shared.IsStorage(err) {
		logger.GetInstance().Errorf("storage failure: %v", err)
	}
	return Result{Success: false, Message: shared.UserMessage(err)}
}
