package web

import (
	"github.com/kozaktomas/selfie-finder/internal/constants"
	"github.com/kozaktomas/selfie-finder/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	photosHandler := handlers.NewPhotosHandler(s.config.Photos.Dir)
	findMeHandler := handlers.NewFindMeHandler(s.cache, s.encoder, s.config.Faces.Tolerance)
	healthHandler := handlers.NewHealthHandler(s.cache, s.encoder)

	s.router.Get("/health", healthHandler.Get)

	s.router.Get("/photos", photosHandler.List)
	s.router.Get(constants.ImagesRoutePrefix+"*", photosHandler.Serve)
	s.router.Post("/find_me", findMeHandler.Find)
}
