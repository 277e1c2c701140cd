// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package tracker

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
)

// httpRoutes builds the tracker's read-only admin surface. The
// register/get_peers/update_pieces contract lives entirely on the TCP
// wire protocol (Server); these routes are an operational side-channel
// for health checks and debugging.
func (s *Server) httpRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/peers", s.handlePeers)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	view, err := s.registry.GetPeers()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view.Peers); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListenAndServeHTTP binds config.HTTPAddr and serves the admin routes
// until the process exits or the listener errors. A no-op if HTTPAddr is
// unset. Intended to be run via `go` alongside ListenAndServe.
func (s *Server) ListenAndServeHTTP() error {
	if s.config.HTTPAddr == "" {
		return nil
	}
	return http.ListenAndServe(s.config.HTTPAddr, s.httpRoutes())
}
