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
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tomoncle/crmjunction/crm"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/repository"
)

const requestTimeout = 30 * time.Second

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// JunctionsRouter exposes every registered junction by table name.
type JunctionsRouter struct {
	admin  *crm.Registry
	logger database.Logger
}

func NewJunctionsRouter(admin *crm.Registry, logger database.Logger) *JunctionsRouter {
	return &JunctionsRouter{admin: admin, logger: logger}
}

func (jr *JunctionsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.Timeout(requestTimeout))
	router.Get("/", jr.List)
	router.Get("/{name}/first/{id}", jr.ListByFirst)
	router.Get("/{name}/second/{id}", jr.ListBySecond)
	router.Get("/{name}/links/{first}/{second}", jr.Exists)
	router.Put("/{name}/links/{first}/{second}", jr.Add)
	router.Delete("/{name}/links/{first}/{second}", jr.Remove)
	return router
}

// List handles GET /junctions.
func (jr *JunctionsRouter) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, DataResponse{Data: jr.admin.Junctions()})
}

func (jr *JunctionsRouter) lookup(w http.ResponseWriter, r *http.Request) (crm.LinkAdmin, bool) {
	admin, err := jr.admin.Get(chi.URLParam(r, "name"))
	if err != nil {
		WriteError(w, r, err, jr.logger)
		return nil, false
	}
	return admin, true
}

// ListByFirst handles GET /junctions/{name}/first/{id}.
func (jr *JunctionsRouter) ListByFirst(w http.ResponseWriter, r *http.Request) {
	admin, ok := jr.lookup(w, r)
	if !ok {
		return
	}
	links, err := admin.ListByFirst(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err, jr.logger)
		return
	}
	WriteJSON(w, http.StatusOK, DataResponse{Data: links})
}

// ListBySecond handles GET /junctions/{name}/second/{id}.
func (jr *JunctionsRouter) ListBySecond(w http.ResponseWriter, r *http.Request) {
	admin, ok := jr.lookup(w, r)
	if !ok {
		return
	}
	links, err := admin.ListBySecond(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err, jr.logger)
		return
	}
	WriteJSON(w, http.StatusOK, DataResponse{Data: links})
}

// Exists handles GET /junctions/{name}/links/{first}/{second}. A missing or
// soft deleted link answers 404.
func (jr *JunctionsRouter) Exists(w http.ResponseWriter, r *http.Request) {
	admin, ok := jr.lookup(w, r)
	if !ok {
		return
	}
	exists, err := admin.Exists(r.Context(), chi.URLParam(r, "first"), chi.URLParam(r, "second"))
	if err != nil {
		WriteError(w, r, err, jr.logger)
		return
	}
	status := http.StatusOK
	if !exists {
		status = http.StatusNotFound
	}
	WriteJSON(w, status, ExistsResponse{Exists: exists})
}

// Add handles PUT /junctions/{name}/links/{first}/{second}. The call is
// idempotent and reactivates a soft deleted link.
func (jr *JunctionsRouter) Add(w http.ResponseWriter, r *http.Request) {
	admin, ok := jr.lookup(w, r)
	if !ok {
		return
	}
	link, err := admin.Add(r.Context(), chi.URLParam(r, "first"), chi.URLParam(r, "second"))
	if err != nil {
		WriteError(w, r, err, jr.logger)
		return
	}
	WriteJSON(w, http.StatusOK, DataResponse{Data: link})
}

// Remove handles DELETE /junctions/{name}/links/{first}/{second}.
func (jr *JunctionsRouter) Remove(w http.ResponseWriter, r *http.Request) {
	admin, ok := jr.lookup(w, r)
	if !ok {
		return
	}
	first, second := chi.URLParam(r, "first"), chi.URLParam(r, "second")
	removed, err := admin.Remove(r.Context(), first, second)
	if err != nil {
		WriteError(w, r, err, jr.logger)
		return
	}
	if !removed {
		WriteError(w, r, fmt.Errorf("%s (%s, %s): %w", admin.Info().Name, first, second, repository.ErrNotFound), jr.logger)
		return
	}
	WriteJSON(w, http.StatusOK, RemoveResponse{Removed: true})
}
