package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/access"
	"github.com/linesmerrill/cfs-intake-api/apperror"
	"github.com/linesmerrill/cfs-intake-api/config"
	"github.com/linesmerrill/cfs-intake-api/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// writeError maps a service error onto a status code and a caller-safe body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *apperror.ValidationError
		ae  *apperror.AuthorizationError
		oe  *apperror.OrganizationRequiredError
		nfe *apperror.NotFoundError
		spe *apperror.StoreProcedureError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, models.ValidationErrorResponse{
			Message: apperror.MsgValidation,
			Errors:  ve.Fields,
		})
	case errors.As(err, &ae), errors.As(err, &oe):
		zap.S().Debugw("request forbidden", "url", r.URL.Path, "error", err)
		config.ErrorStatus(apperror.SafeMessage(err), http.StatusForbidden, w, nil)
	case errors.As(err, &nfe):
		config.ErrorStatus(apperror.SafeMessage(err), http.StatusNotFound, w, nil)
	case errors.As(err, &spe) && spe.Safe:
		zap.S().Debugw("procedure rejected request", "procedure", spe.Procedure, "error", err)
		config.ErrorStatus(spe.Message, http.StatusConflict, w, nil)
	default:
		config.ErrorStatus(apperror.MsgGeneric, http.StatusInternalServerError, w, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		zap.S().Debugw("bad path id", name, raw)
		config.ErrorStatus("invalid "+name, http.StatusBadRequest, w, nil)
		return 0, false
	}
	return id, true
}

// acting returns the access context the guard attached to the request
func acting(r *http.Request) access.Context {
	ac, _ := access.FromContext(r.Context())
	return ac
}
