// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/danielhkuo/condovote/auth"
	"github.com/danielhkuo/condovote/router"
	"github.com/danielhkuo/condovote/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// server is the full HTTP stack over a fresh test ledger.
type server struct {
	*testutil.Env
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()

	env := testutil.NewEnv(t)
	return &server{
		Env:    env,
		engine: router.NewRouter(env.Ledger, testutil.GetTestConfig(), env.Log, env.Registry),
	}
}

func (s *server) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return testutil.Serve(s.engine, testutil.MakeRequest(method, path, body, headers))
}

func (s *server) asStaff(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, staffHeaders())
}

func (s *server) asUser(userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, userHeaders(userID))
}

func staffHeaders() map[string]string {
	return map[string]string{auth.HeaderStaffKey: testutil.TestStaffKey}
}

func userHeaders(userID string) map[string]string {
	return map[string]string{auth.HeaderUserID: userID}
}
