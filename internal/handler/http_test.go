package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"story-engine/internal/judgment"
	"story-engine/internal/savestore"
	"story-engine/internal/service"
	"story-engine/internal/story"
	"story-engine/internal/traversal"
	"story-engine/shared/authutils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

type HandlerSuite struct {
	suite.Suite
	e      *echo.Echo
	store  *savestore.MemoryStore
	player uuid.UUID
	token  string
}

func (s *HandlerSuite) SetupTest() {
	g, err := story.Load("../story/testdata/story.yaml")
	s.Require().NoError(err)
	judge := traversal.JudgeFunc(func(_ context.Context, _ *story.Challenge, input string) judgment.Result {
		return judgment.Result{Passed: strings.Contains(input, "help"), Provenance: judgment.ProvenanceLocal, Explanation: "checked"}
	})
	s.store = savestore.NewMemoryStore()
	svc := service.NewGameService(g, judge, s.store, nil, zap.NewNop())

	verifier, err := authutils.NewJWTVerifier(testSecret, nil)
	s.Require().NoError(err)

	s.e = echo.New()
	s.e.Validator = NewRequestValidator()
	NewGameHandler(svc, verifier.VerifyToken, nil, zap.NewNop()).RegisterRoutes(s.e)

	s.player = uuid.New()
	s.token = s.issue(s.player)
}

func (s *HandlerSuite) issue(player uuid.UUID) string {
	token, err := authutils.IssueToken(testSecret, player, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) newSession() string {
	rec := s.do(http.MethodPost, "/sessions", s.token, "")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp SessionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.SessionID
}

func (s *HandlerSuite) session(rec *httptest.ResponseRecorder) SessionResponse {
	var resp SessionResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) TestHealthIsPublic() {
	rec := s.do(http.MethodGet, "/health", "", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestRequiresToken() {
	rec := s.do(http.MethodPost, "/sessions", "", "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestPlayToChallenge() {
	id := s.newSession()
	base := "/sessions/" + id

	resp := s.session(s.do(http.MethodPost, base+"/advance", s.token, ""))
	s.Equal("p2", resp.NodeID)
	s.Equal("A classmate looks lost.", resp.Node.Text)

	resp = s.session(s.do(http.MethodPost, base+"/advance", s.token, ""))
	s.Equal(traversal.PhaseAwaitingChoice, resp.Phase)
	s.Len(resp.Choices, 3)

	rec := s.do(http.MethodPost, base+"/choices", s.token, `{"index": 9}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, base+"/choices", s.token, `{}`)
	s.Equal(http.StatusBadRequest, rec.Code, "index is required")

	resp = s.session(s.do(http.MethodPost, base+"/choices", s.token, `{"index": 0}`))
	s.Equal("p3", resp.NodeID)
	s.Equal(2, resp.Scores["good_deed"])

	resp = s.session(s.do(http.MethodPost, base+"/advance", s.token, ""))
	s.Equal(traversal.PhaseAwaitingFreeText, resp.Phase)
	s.Require().NotNil(resp.Challenge)
	s.Equal("What do you do?", resp.Challenge.Prompt)

	rec = s.do(http.MethodPost, base+"/answers", s.token, `{"input": "   "}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/answers", s.token, `{"input": "I help"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var answer AnswerResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &answer))
	s.True(answer.Result.Passed)
	s.Equal("p4", answer.Session.NodeID)
	s.Equal([]string{"good_deed"}, answer.Session.CollectedTokens)
	s.Equal(5, answer.Session.Scores["good_deed"])
}

func (s *HandlerSuite) TestErrorMapping() {
	id := s.newSession()
	base := "/sessions/" + id

	rec := s.do(http.MethodPost, base+"/resolve-failure", s.token, "")
	s.Equal(http.StatusConflict, rec.Code, "wrong phase")

	rec = s.do(http.MethodGet, base, s.issue(uuid.New()), "")
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/sessions/"+uuid.NewString(), s.token, "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/sessions/not-a-uuid", s.token, "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/load", s.token, `{"token": "missing"}`)
	s.Equal(http.StatusNotFound, rec.Code)

	s.store.Put(s.player.String(), "broken", []byte(`{{`))
	rec = s.do(http.MethodPost, base+"/load", s.token, `{"token": "broken"}`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	s.store.Put(s.player.String(), "dangling", []byte(`{"chapterId":"prologue","nodeId":"nowhere"}`))
	rec = s.do(http.MethodPost, base+"/load", s.token, `{"token": "dangling"}`)
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *HandlerSuite) TestSaveLoadAndEnd() {
	id := s.newSession()
	base := "/sessions/" + id

	s.do(http.MethodPost, base+"/advance", s.token, "")
	rec := s.do(http.MethodPost, base+"/saves", s.token, "")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var saved SaveResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &saved))
	s.NotEmpty(saved.Token)

	s.do(http.MethodPost, base+"/advance", s.token, "")
	resp := s.session(s.do(http.MethodPost, base+"/load", s.token, ""))
	s.Equal("p2", resp.NodeID, "empty body loads the latest save")
	s.Equal(traversal.PhaseAwaitingAdvance, resp.Phase)

	rec = s.do(http.MethodDelete, base, s.token, "")
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, base, s.token, "")
	s.Equal(http.StatusNotFound, rec.Code)
}
