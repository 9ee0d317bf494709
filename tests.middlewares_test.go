package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

// TestMiddlewaresStacks ensures we get both public and ops middlewares
// stacks with exact number of elements in those stacks.
func TestMiddlewaresStacks(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	pub, ops := api.MiddlewaresStacks()
	assert.Equal(t, 6, len(*pub))
	assert.Equal(t, 4, len(*ops))
}

// TestChain ensures each middleware in the stack is called as well the handler.
func TestChain(t *testing.T) {
	var ca, cb, cc, ch bool
	queue := make(chan int, 4)

	middlewareA := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 1
			ca = true
			next(w, r, ps)
		}
	}
	middlewareB := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 2
			cb = true
			next(w, r, ps)
		}
	}
	middlewareC := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 3
			cc = true
			next(w, r, ps)
		}
	}
	middlewares := Middlewares{
		middlewareA,
		middlewareB,
		middlewareC,
	}

	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		queue <- 4
		ch = true
	}

	chained := (&middlewares).Chain(handler)
	req := httptest.NewRequest("GET", "/v1/books", nil)
	w := httptest.NewRecorder()
	chained(w, req, nil)

	t.Run("check calling", func(t *testing.T) {
		assert.Equal(t, true, ca)
		assert.Equal(t, true, cb)
		assert.Equal(t, true, cc)
		assert.Equal(t, true, ch)
	})

	t.Run("check ordering", func(t *testing.T) {
		assert.Equal(t, 1, <-queue)
		assert.Equal(t, 2, <-queue)
		assert.Equal(t, 3, <-queue)
		assert.Equal(t, 4, <-queue)
	})
}

// TestRequestsCounterMiddleware ensures the request counter increment.
func TestRequestsCounterMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	req := httptest.NewRequest("GET", "/v1/books", nil)
	w := httptest.NewRecorder()
	var num uint64
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		num = GetRequestNumberFromContext(req.Context())
	}
	wrapped := api.RequestsCounterMiddleware(handler)
	wrapped(w, req, nil)
	wrapped(w, req, nil)
	assert.Equal(t, uint64(2), num)
	assert.Equal(t, uint64(2), api.stats.called)
}

// TestRequestIDMiddleware ensures a valid caller id is kept and an invalid one replaced.
func TestRequestIDMiddleware(t *testing.T) {
	testCases := []struct {
		name     string
		header   string
		valid    bool
		expected string
	}{
		{"reuse valid id", "r:caller", true, "r:caller"},
		{"replace invalid id", "garbage", false, "r:abc"},
		{"generate missing id", "", false, "r:abc"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPIHandler(nil, nil)
			api.idsHandler = NewMockUIDHandler("abc", tc.valid)
			req := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			var got string
			api.RequestIDMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				got = GetValueFromContext(r.Context(), ContextRequestID)
			})(w, req, nil)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.expected, w.Header().Get(RequestIDHeader))
		})
	}
}

// TestCoreMiddleware ensures final status codes are counted.
func TestCoreMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	handle := func(code int) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			w.WriteHeader(code)
			w.WriteHeader(http.StatusTeapot)
		}
	}
	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusNotFound} {
		api.CoreMiddleware(handle(code))(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)
	}
	api.CoreMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("{}"))
	})(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)

	assert.Equal(t, map[int]uint64{http.StatusOK: 2, http.StatusNotFound: 2}, api.stats.status)
}

// TestMaintenanceModeMiddleware ensures public calls are rejected during maintenance.
func TestMaintenanceModeMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	var called bool
	wrapped := api.MaintenanceModeMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)
	assert.True(t, called)

	called = false
	api.mode.enable("database upgrade", api.clock.Now())
	w := httptest.NewRecorder()
	wrapped(w, httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)
	assert.False(t, called)
	status, body := decodeResponse(t, w)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "300", w.Header().Get("Retry-After"))
	assert.Equal(t, "service currently unavailable.", body["message"])
	assert.Equal(t, "database upgrade", body["reason"])
	assert.Equal(t, "Sun, 02 Jul 2023 00:00:00 UTC", body["since"])

	api.mode.disable()
	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)
	assert.True(t, called)
}

// TestPanicRecoveryMiddleware ensures a panicking handler ends with an internal error response.
func TestPanicRecoveryMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	chain := &Middlewares{api.PanicRecoveryMiddleware, api.RequestIDMiddleware}
	handler := chain.Chain(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		panic("unexpected")
	})
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler(w, httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)
	})
	status, body := decodeResponse(t, w)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "r:abc", body["requestid"])
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, body))
}

// TestCORSMiddleware ensures cors headers are set.
func TestCORSMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	CORSMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {})(w, httptest.NewRequest(http.MethodGet, "/v1/books", nil), nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
