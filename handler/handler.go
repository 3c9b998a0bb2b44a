// Package handler exposes the JSON API. Every request runs under a
// tenant context resolved before routing; handlers never see an
// unresolved request.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tubescribe/tubescribe/model"
)

type ctxKey int

const tenantKey ctxKey = iota

func withTenant(r *http.Request, tc model.TenantContext) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), tenantKey, tc))
}

// tenant returns the request's tenant context. The server guarantees it
// is set before any API handler runs.
func tenant(r *http.Request) model.TenantContext {
	tc, _ := r.Context().Value(tenantKey).(model.TenantContext)
	return tc
}

func Index(w http.ResponseWriter) {
	Message(w, http.StatusOK, "tubescribe index")
}

func Message(w http.ResponseWriter, status int, message string, details ...any) {
	w.WriteHeader(status)
	response := struct {
		Message string `json:"message"`
		Details []any  `json:"details,omitempty"`
	}{
		Message: message,
		Details: details,
	}
	body, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		fmt.Fprintf(w, `{"message": %q, "details":%q}`, message, marshalErr.Error())
		return
	}
	w.Write(body)
}

func Error(w http.ResponseWriter, status int, message string, err error, details ...any) {
	w.WriteHeader(status)
	response := struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Details []any  `json:"details,omitempty"`
	}{
		Message: message,
		Error:   err.Error(),
		Details: details,
	}
	body, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		fmt.Fprintf(w, `{"message": %q, "error": %q, "details":%q}`, message, err.Error(), marshalErr.Error())
		return
	}
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		Error(w, http.StatusInternalServerError, "could not marshal response", err)
		return
	}
	w.WriteHeader(status)
	w.Write(body)
}
