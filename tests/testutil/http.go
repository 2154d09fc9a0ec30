package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase drives one handler call. ExpectedCode, when set, is matched
// against error.code of the response envelope.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           any
	Headers        map[string]string
	Setup          func(t *testing.T, tc *TestContext)
	ExpectedStatus int
	ExpectedCode   string
	Validate       func(t *testing.T, tc *TestContext)
}

// Envelope is the decoded API response
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Error   map[string]any `json:"error"`
	Meta    map[string]any `json:"meta"`
}

// RunHTTPTestCases runs each case as a subtest
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase calls handler directly on a test context built from tc
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	var body io.Reader
	if tc.Body != nil {
		raw, err := json.Marshal(tc.Body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}
	path := tc.Path
	if path == "" {
		path = "/"
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, body)
	if tc.Body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.Headers {
		c.Request.Header.Set(k, v)
	}

	testCtx := &TestContext{Context: c, Recorder: w}
	if tc.Setup != nil {
		tc.Setup(t, testCtx)
	}

	handler(c)

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, w.Code, w.Body.String())
	}
	if tc.ExpectedCode != "" {
		env := DecodeEnvelope(t, testCtx)
		assert.False(t, env.Success)
		assert.Equal(t, tc.ExpectedCode, env.Error["code"])
	}
	if tc.Validate != nil {
		tc.Validate(t, testCtx)
	}
}

// DecodeEnvelope parses the recorded body as an API envelope
func DecodeEnvelope(t *testing.T, tc *TestContext) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &env), string(tc.ResponseBody()))
	return env
}
