package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupCatalogRoutes injects the status, authors and books endpoints.
func (api *APIHandler) SetupCatalogRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))

	router.POST("/v1/authors", m.public(api.CreateAuthor))
	router.GET("/v1/authors", m.public(api.GetAllAuthors))
	router.GET("/v1/authors/:id", m.public(api.GetOneAuthor))
	router.GET("/v1/authors/:id/books", m.public(api.GetAuthorBooks))
	router.PUT("/v1/authors/:id", m.public(api.UpdateAuthor))
	router.DELETE("/v1/authors/:id", m.public(api.DeleteOneAuthor))

	router.POST("/v1/books", m.public(api.CreateBook))
	router.GET("/v1/books", m.public(api.GetAllBooks))
	router.GET("/v1/books/:id", m.public(api.GetOneBook))
	router.PUT("/v1/books/:id", m.public(api.UpdateBook))
	router.DELETE("/v1/books/:id", m.public(api.DeleteOneBook))
	return router
}
