package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateBook godoc
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        book  body      BookInput  true  "book to create"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Failure      409   {object}  APIError
// @Router       /v1/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	var input BookInput
	if err := DecodeRequestBody(w, r, &input); err != nil {
		api.sendBadRequest(w, r, "failed to create the book", CodeInvalidInput, err)
		return
	}

	id, err := api.bookService.Create(r.Context(), input)
	if err != nil {
		api.sendError(w, r, "failed to create the book", err)
		return
	}
	api.logger.Info("success to create book", zap.String("request.id", requestID), zap.Int64("book.id", id))
	api.send(w, r, GenericResponse(requestID, http.StatusCreated, "Book created successfully.", nil, CreatedResource{ID: id}))
}

// GetAllBooks godoc
// @Summary      List all books
// @Tags         books
// @Produce      json
// @Success      200  {object}  APIResponse
// @Router       /v1/books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	api.extendWriteDeadline(w, r)

	books, err := api.bookService.List(r.Context())
	if err != nil {
		api.sendError(w, r, "failed to get all books", err)
		return
	}
	total := len(books)
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "All books fetched successfully.", &total, books))
}

// GetOneBook godoc
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /v1/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "book id provided is not valid", CodeInvalidIdentifier, err)
		return
	}

	book, err := api.bookService.Get(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to get the book", err)
		return
	}
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Book fetched successfully.", nil, book))
}

// UpdateBook godoc
// @Summary      Update a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id    path      int        true  "book id"
// @Param        book  body      BookInput  true  "new book values"
// @Success      200   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Failure      409   {object}  APIError
// @Router       /v1/books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "book id provided is not valid", CodeInvalidIdentifier, err)
		return
	}
	var input BookInput
	if err = DecodeRequestBody(w, r, &input); err != nil {
		api.sendBadRequest(w, r, "failed to update the book", CodeInvalidInput, err)
		return
	}

	if err = api.bookService.Update(r.Context(), id, input); err != nil {
		api.sendError(w, r, "failed to update the book", err)
		return
	}
	api.logger.Info("success to update book", zap.String("request.id", requestID), zap.Int64("book.id", id))
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Book updated successfully.", nil, CreatedResource{ID: id}))
}

// DeleteOneBook godoc
// @Summary      Delete a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Router       /v1/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id, err := ParseIDParam(ps)
	if err != nil {
		api.sendBadRequest(w, r, "book id provided is not valid", CodeInvalidIdentifier, err)
		return
	}

	if err = api.bookService.Delete(r.Context(), id); err != nil {
		api.sendError(w, r, "failed to delete the book", err)
		return
	}
	api.logger.Info("success to delete book", zap.String("request.id", requestID), zap.Int64("book.id", id))
	api.send(w, r, GenericResponse(requestID, http.StatusOK, "Book deleted successfully.", nil, EmptyData))
}
