package templates

import (
	"net/http"
	"strconv"
)

// NormalizeErrorStatus maps a status to one that has dedicated copy. Anything
// unknown renders as a server error.
func NormalizeErrorStatus(status int) int {
	switch status {
	case http.StatusForbidden, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusRequestEntityTooLarge:
		return status
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTitle returns the localized heading for status.
func ErrorTitle(page PageContext, status int) string {
	status = NormalizeErrorStatus(status)
	return page.T("error."+strconv.Itoa(status)+".title", http.StatusText(status))
}

// ErrorMessage returns the localized explanation for status.
func ErrorMessage(page PageContext, status int) string {
	status = NormalizeErrorStatus(status)
	return page.T("error."+strconv.Itoa(status)+".message", http.StatusText(status))
}
