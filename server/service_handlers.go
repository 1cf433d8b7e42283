package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

const healthTimeout = 2 * time.Second

func (s *Server) ListServices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.catalogue.List())
	}
}

func (s *Server) ServiceLogo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := s.catalogue.Get(chi.URLParam(r, "id"))
		if !ok || svc.Logo == "" || s.logos == nil {
			writeError(w, r, apperrors.ErrNotFound)
			return
		}
		logo, err := s.logos.Open(r.Context(), svc.Logo)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer logo.Body.Close()

		w.Header().Set("Content-Type", logo.ContentType)
		if logo.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(logo.Size, 10))
		}
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		if _, err := io.Copy(w, logo.Body); err != nil {
			log.Err(err).Str("service", svc.ID).Msg("Failed to stream service logo")
		}
	}
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		for i, p := range s.health {
			if err := p.Ping(ctx); err != nil {
				log.Err(err).Int("dependency", i).Msg("Health check failed")
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "ok")
	}
}
