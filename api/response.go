/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tomoncle/crmjunction/crm"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/repository"
)

type ErrorResponse struct {
	Status    string `json:"status"`
	Title     string `json:"title"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type DataResponse struct {
	Data interface{} `json:"data"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto a status code and writes it as JSON. Server
// errors are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger database.Logger) {
	status := http.StatusInternalServerError
	title := "Internal Server Error"
	switch {
	case errors.Is(err, crm.ErrUnknownJunction):
		status, title = http.StatusNotFound, "Unknown Junction"
	case errors.Is(err, repository.ErrNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, crm.ErrInvalidID):
		status, title = http.StatusBadRequest, "Invalid ID"
	default:
		status, title = constraintStatus(err, status, title)
	}

	requestID := chimiddleware.GetReqID(r.Context())
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request error",
			"request_id", requestID,
			"status", status,
			"path", r.URL.Path,
			"error", err.Error())
	}
	WriteJSON(w, status, ErrorResponse{
		Status:    http.StatusText(status),
		Title:     title,
		Detail:    err.Error(),
		RequestID: requestID,
	})
}

// constraintStatus maps constraint violations reported by the database onto
// client errors.
func constraintStatus(err error, status int, title string) (int, string) {
	_, kind := database.IsSqlError(err)
	switch kind {
	case database.DuplicateKeyErr:
		return http.StatusConflict, "Duplicate Link"
	case database.ForeignKeyViolationErr:
		return http.StatusUnprocessableEntity, "Unknown Reference"
	case database.NotNullViolationErr:
		return http.StatusUnprocessableEntity, "Missing Value"
	}
	return status, title
}

// Logging logs one line per request at debug level.
func Logging(logger database.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Debug("request completed",
					"request_id", chimiddleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds())
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
