// Package http provides the thin health/metrics surface this service
// exposes; full product/source CRUD is out of scope.
package http

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/pagewatch/internal/scheduler"
	"github.com/jmylchreest/pagewatch/internal/version"
)

// NewRouter builds the chi router exposing liveness, readiness, and
// scheduler stats behind the standard RequestID/RealIP/Logger/Recoverer
// middleware chain.
func NewRouter(db *sql.DB, sched *scheduler.Scheduler, idleMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if idleMiddleware != nil {
		r.Use(idleMiddleware)
	}

	r.Get("/healthz", livez)
	r.Get("/readyz", readyz(db))
	r.Get("/api/v1/version", versionHandler)
	r.Get("/api/v1/stats", statsHandler(sched))
	r.Get("/api/v1/jobs", jobsHandler(sched))
	r.Get("/api/v1/jobs/{product_id}", jobHandler(sched))

	return r
}

func livez(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func readyz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func statsHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sched.Stats())
	}
}

func jobsHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sched.ListJobs())
	}
}

func jobHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "product_id")
		info, ok := sched.GetJobInfo(productID)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
