package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// steppingClock moves one second forward on each call.
type steppingClock struct {
	now time.Time
}

func (sc *steppingClock) Now() time.Time {
	sc.now = sc.now.Add(time.Second)
	return sc.now
}

func TestParseIDParam(t *testing.T) {
	testCases := []struct {
		value    string
		expected int64
		valid    bool
	}{
		{"1", 1, true},
		{"9223372036854775807", 9223372036854775807, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"", 0, false},
		{"b:12", 0, false},
		{"9223372036854775808", 0, false},
	}
	for _, tc := range testCases {
		id, err := ParseIDParam(httprouter.Params{{Key: "id", Value: tc.value}})
		if !tc.valid {
			assert.ErrorIs(t, err, errInvalidID, tc.value)
			continue
		}
		require.NoError(t, err, tc.value)
		assert.Equal(t, tc.expected, id)
	}
}

func TestDecodeRequestBody(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		var input AuthorInput
		req := httptest.NewRequest(http.MethodPost, "/v1/authors", nil)
		err := DecodeRequestBody(httptest.NewRecorder(), req, &input)
		assert.ErrorIs(t, err, errEmptyBody)
	})

	t.Run("valid body", func(t *testing.T) {
		var input AuthorInput
		req := httptest.NewRequest(http.MethodPost, "/v1/authors", strings.NewReader(`{"name":"Ada","email":"ada@x.io"}`))
		require.NoError(t, DecodeRequestBody(httptest.NewRecorder(), req, &input))
		assert.Equal(t, AuthorInput{Name: "Ada", Email: "ada@x.io"}, input)
	})

	t.Run("trailing content", func(t *testing.T) {
		bodies := []string{
			`{"name":"Ada","email":"ada@x.io"} {"name":"Eve"} garbage`,
			`{"name":"Ada","email":"ada@x.io"}{}`,
			`{"name":"Ada","email":"ada@x.io"} garbage`,
		}
		for _, body := range bodies {
			var input AuthorInput
			req := httptest.NewRequest(http.MethodPost, "/v1/authors", strings.NewReader(body))
			assert.ErrorIs(t, DecodeRequestBody(httptest.NewRecorder(), req, &input), errTrailerBody, body)
		}
	})

	t.Run("trailing whitespace", func(t *testing.T) {
		var input AuthorInput
		req := httptest.NewRequest(http.MethodPost, "/v1/authors", strings.NewReader("{\"name\":\"Ada\",\"email\":\"ada@x.io\"}\n\t "))
		require.NoError(t, DecodeRequestBody(httptest.NewRecorder(), req, &input))
		assert.Equal(t, "Ada", input.Name)
	})

	t.Run("too large body", func(t *testing.T) {
		var input AuthorInput
		payload := `{"name":"` + strings.Repeat("a", int(maxRequestBody)) + `","email":"ada@x.io"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/authors", strings.NewReader(payload))
		assert.Error(t, DecodeRequestBody(httptest.NewRecorder(), req, &input))
	})
}

func TestGetRequestSourceIP(t *testing.T) {
	testCases := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"real ip header", map[string]string{"X-REAL-IP": "10.0.0.1"}, "192.0.2.1:1234", "10.0.0.1"},
		{"forwarded header", map[string]string{"X-FORWARDED-FOR": "bad, 10.0.0.2, 10.0.0.3"}, "192.0.2.1:1234", "10.0.0.2"},
		{"remote address", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"invalid remote address", nil, "nowhere", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, GetRequestSourceIP(req))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetValueFromContext(ctx, ContextRequestID))
	assert.Equal(t, uint64(0), GetRequestNumberFromContext(ctx))
	assert.Nil(t, GetConnFromContext(ctx))

	ctx = context.WithValue(ctx, ContextRequestID, "r:abc")
	ctx = context.WithValue(ctx, ContextRequestNumber, uint64(7))
	assert.Equal(t, "r:abc", GetValueFromContext(ctx, ContextRequestID))
	assert.Equal(t, uint64(7), GetRequestNumberFromContext(ctx))
}

func TestCustomResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := NewCustomResponseWriter(rec, nil)
	assert.Equal(t, http.StatusOK, cw.Status())

	cw.WriteHeader(http.StatusConflict)
	cw.WriteHeader(http.StatusOK)
	n, err := cw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusConflict, cw.Status())
	assert.Equal(t, 5, cw.Bytes())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, rec, cw.Unwrap())

	assert.ErrorIs(t, cw.SetWriteDeadline(time.Now()), http.ErrNotSupported)
	assert.ErrorIs(t, cw.SetReadDeadline(time.Now()), http.ErrNotSupported)
}

func TestIDsHandler(t *testing.T) {
	idh := NewIDsHandler()
	id := idh.Generate(RequestIDPrefix)
	assert.True(t, strings.HasPrefix(id, "r:"))
	assert.True(t, idh.IsValid(id, RequestIDPrefix))
	assert.False(t, idh.IsValid(id, "b"))
	assert.False(t, idh.IsValid("r:not-a-uuid", RequestIDPrefix))
	assert.False(t, idh.IsValid("", RequestIDPrefix))
	assert.NotEqual(t, id, idh.Generate(RequestIDPrefix))
}

func TestCreateLogFilePath(t *testing.T) {
	ts := time.Date(2023, 7, 2, 9, 5, 3, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "20230702.090503.prod.log"), CreateLogFilePath("logs", true, ts))
	assert.Equal(t, filepath.Join("logs", "20230702.090503.dev.log"), CreateLogFilePath("logs", false, ts))
}

func TestRSyncWrite(t *testing.T) {
	dir := t.TempDir()
	rsw := &RSyncWrite{
		clock:  &steppingClock{now: NewMockClocker().Now()},
		folder: dir,
		max:    16,
		isProd: true,
	}
	defer rsw.Close()

	_, err := rsw.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = rsw.Write([]byte("01234"))
	require.NoError(t, err)
	// the third write does not fit and opens a new file.
	_, err = rsw.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, rsw.Sync())

	_, err = rsw.Write([]byte(strings.Repeat("x", 17)))
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	first, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "012345678901234", string(first))

	require.NoError(t, rsw.Close())
	require.NoError(t, rsw.Close())
	assert.NoError(t, rsw.Sync())
}

func TestSetupLogging(t *testing.T) {
	dir := t.TempDir()
	config := &Config{IsProduction: true, LogFolder: dir, LogMaxSize: 1, LogLevel: zapcore.InfoLevel, Storage: StorageConfig{Driver: BoltDriver}}
	rsw := NewRSyncWriter(config, NewMockClocker())
	logger, flush := SetupLogging(config, rsw, NewClock(true))
	logger.Debug("hidden")
	logger.Info("visible")
	require.NoError(t, flush())
	require.NoError(t, rsw.Close())

	data, err := os.ReadFile(CreateLogFilePath(dir, true, NewMockClocker().Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"visible"`)
	assert.Contains(t, string(data), `"app.storage":"bolt"`)
	assert.NotContains(t, string(data), "hidden")
}
