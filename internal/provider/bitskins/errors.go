package bitskins

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CodeClockSkew is returned when the one-time code does not match the
// marketplace clock window.
const CodeClockSkew = "GLO_005"

// APIError is a non-2xx answer from the marketplace.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bitskins: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("bitskins: status %d: %s", e.Status, e.Message)
}

// IsClockSkew reports whether err is a rejected one-time code.
func IsClockSkew(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == CodeClockSkew
}

func newAPIError(status int, body []byte) *APIError {
	ae := &APIError{Status: status}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		ae.Code, ae.Message = payload.Code, payload.Message
		if ae.Code == "" && payload.Error != nil {
			ae.Code, ae.Message = payload.Error.Code, payload.Error.Message
		}
	}
	if ae.Message == "" {
		ae.Message = string(body)
	}
	return ae
}
