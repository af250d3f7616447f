package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/usecase"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func statusForCode(code string) int {
	switch code {
	case usecase.CodeValidation, usecase.CodeInvalidStage, usecase.CodeUnmappedNotification:
		return http.StatusBadRequest
	case usecase.CodeLeadNotFound, usecase.CodeUserNotFound, usecase.CodeNotificationNotFound:
		return http.StatusNotFound
	case usecase.CodeTerminalStage, usecase.CodeStageConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeUsecaseError maps domain errors to 4xx and everything else to 500.
func writeUsecaseError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeErrorResponse(w, statusForCode(de.Code), de.Code, de.Message)
		return
	}
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		logger.Error("❌ request failed", zap.String("code", te.Code), zap.Error(te.Err))
		writeErrorResponse(w, http.StatusInternalServerError, te.Code, te.Message)
		return
	}
	logger.Error("❌ request failed", zap.Error(err))
	writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return false
	}
	return true
}
