package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateAuthor godoc
// @Summary      Create an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Param        author  body      AuthorInput  true  "author to create"
// @Success      201     {object}  APIResponse
// @Failure      400     {object}  APIError
// @Failure      409     {object}  APIError
// @Router       /v1/authors [post]
func (api *APIHandler) CreateAuthor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	var input AuthorInput
	if err := DecodeRequestBody(w, r, &input); err != nil {
		api.sendBadRequest(w, r, "failed to create the author", CodeInvalidInput, err)
		return
	}

	id, err := api.authorService.Create(r.Context(), input)
	if err != nil {
		api.sendError(w, r, "failed to create the author", err)
		return
	}
	api.logger.Info("success to create author", zap.String("request.id", requestID), zap.Int64("author.id", id))
	api.send(w, r, GenericResponse(requestID, http.StatusCreated, "Author created successfully.", nil, CreatedResource{ID: id}))
}

// GetAllAuthors godoc
// @Summary      List all authors
// @Tags         authors
// @Produce      json
// @Success      200  {object}  APIResponse
// @Router       /v1/authors [get]
func (api *APIHandler) GetAllAuthors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	api.extendWriteDeadline(w, r)

	authors, err := api.authorService.List(r.Context())
	if err != nil {
		api.sendError(w, r, "failed to get all authors", err)
		return
	}
	total := len(authors)
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "All authors fetched successfully.", &total, authors))
}

// GetOneAuthor godoc
// @Summary      Get an author
// @Tags         authors
// @Produce      json
// @Param        id   path      int  true  "author id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /v1/authors/{id} [get]
func (api *APIHandler) GetOneAuthor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "author id provided is not valid", CodeInvalidIdentifier, err)
		return
	}

	author, err := api.authorService.Get(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to get the author", err)
		return
	}
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Author fetched successfully.", nil, author))
}

// GetAuthorBooks godoc
// @Summary      List the books of an author
// @Tags         authors
// @Produce      json
// @Param        id   path      int  true  "author id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /v1/authors/{id}/books [get]
func (api *APIHandler) GetAuthorBooks(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "author id provided is not valid", CodeInvalidIdentifier, err)
		return
	}
	api.extendWriteDeadline(w, r)

	books, err := api.bookService.ListBooksByAuthor(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to get the author books", err)
		return
	}
	total := len(books)
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Author books fetched successfully.", &total, books))
}

// UpdateAuthor godoc
// @Summary      Update an author
// @Tags         authors
// @Accept       json
// @Produce      json
// @Param        id      path      int          true  "author id"
// @Param        author  body      AuthorInput  true  "new author values"
// @Success      200     {object}  APIResponse
// @Failure      400     {object}  APIError
// @Failure      404     {object}  APIError
// @Failure      409     {object}  APIError
// @Router       /v1/authors/{id} [put]
func (api *APIHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "author id provided is not valid", CodeInvalidIdentifier, err)
		return
	}
	var input AuthorInput
	if err = DecodeRequestBody(w, r, &input); err != nil {
		api.sendBadRequest(w, r, "failed to update the author", CodeInvalidInput, err)
		return
	}

	if err = api.authorService.Update(r.Context(), id, input); err != nil {
		api.sendError(w, r, "failed to update the author", err)
		return
	}
	api.logger.Info("success to update author", zap.String("request.id", requestID), zap.Int64("author.id", id))
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Author updated successfully.", nil, CreatedResource{ID: id}))
}

// DeleteOneAuthor godoc
// @Summary      Delete an author and all of its books
// @Tags         authors
// @Produce      json
// @Param        id   path      int  true  "author id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Router       /v1/authors/{id} [delete]
func (api *APIHandler) DeleteOneAuthor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "author id provided is not valid", CodeInvalidIdentifier, err)
		return
	}

	if err = api.authorService.Delete(r.Context(), id); err != nil {
		api.sendError(w, r, "failed to delete the author", err)
		return
	}
	api.logger.Info("success to delete author", zap.String("request.id", requestID), zap.Int64("author.id", id))
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Author deleted successfully.", nil, EmptyData))
}
