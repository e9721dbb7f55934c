package handlers

import (
	"net/http"

	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/notifications"
)

// engineError maps engine error types onto HTTP status codes
func engineError(message string, w http.ResponseWriter, err error) {
	switch {
	case notifications.IsValidation(err):
		config.ErrorStatus(message, http.StatusBadRequest, w, err)
	case notifications.IsNotFound(err):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}
