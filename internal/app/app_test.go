package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mocktest_backend/internal/config"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/docstore"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testClient struct {
	t      *testing.T
	router http.Handler
	token  string
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		JWT:    config.JWTConfig{Secret: testSecret},
		Store:  config.StoreConfig{Type: util.StoreMemory},
		Session: config.SessionConfig{
			SubmitTimeout:   time.Second,
			Retention:       time.Minute,
			IdleTimeout:     time.Hour,
			JanitorSchedule: "@every 1m",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app := newWithStore(testConfig(), docstore.NewMemoryStore())
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app
}

func (a *App) client(t *testing.T, userID, name string, role model.UserRole) *testClient {
	t.Helper()
	token, err := util.GenerateJWT(userID, name, role, testSecret, time.Hour)
	require.NoError(t, err)
	return &testClient{t: t, router: a.Router, token: token}
}

func (c *testClient) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// seedMockTest 通过管理接口建一套两题的试卷
func seedMockTest(t *testing.T, admin *testClient) string {
	t.Helper()
	code, env := admin.do(http.MethodPost, "/api/admin/mock-tests", map[string]any{
		"title": "Physics Mock 1", "examId": "exam-1", "duration": 1,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	test := decode[model.MockTest](t, env.Data)

	for _, q := range []map[string]any{
		{"question": "1+1?", "optionA": "2", "optionB": "3", "optionC": "4", "optionD": "5", "correctOption": "A", "marks": 5},
		{"question": "2+1?", "optionA": "2", "optionB": "3", "optionC": "4", "optionD": "5", "correctOption": "B", "marks": 5},
	} {
		code, env := admin.do(http.MethodPost, "/api/admin/mock-tests/"+test.ID+"/questions", q)
		require.Equal(t, http.StatusCreated, code, env.Message)
	}
	return test.ID
}

type stateView struct {
	SessionID        string   `json:"sessionId"`
	Status           string   `json:"status"`
	CurrentIndex     int      `json:"currentIndex"`
	QuestionCount    int      `json:"questionCount"`
	AnsweredCount    int      `json:"answeredCount"`
	Selections       []string `json:"selections"`
	RemainingSeconds int      `json:"remainingSeconds"`
	Current          *struct {
		Text string `json:"text"`
	} `json:"current"`
}

func TestMockTestFlow(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t, "admin-1", "Root", model.Admin)
	ada := app.client(t, "user-1", "Ada", model.Student)
	bob := app.client(t, "user-2", "Bob", model.Student)

	testID := seedMockTest(t, admin)

	code, env := ada.do(http.MethodGet, "/api/mock-tests", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Total int `json:"total"`
	}](t, env.Data)
	assert.Equal(t, 1, list.Total)

	// 没有提交时不伪造结果
	code, _ = ada.do(http.MethodGet, "/api/mock-tests/"+testID+"/result", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = ada.do(http.MethodPost, "/api/mock-tests/"+testID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	st := decode[stateView](t, env.Data)
	assert.Equal(t, "in_progress", st.Status)
	assert.Equal(t, 2, st.QuestionCount)
	assert.Equal(t, 60, st.RemainingSeconds)
	require.NotNil(t, st.Current)
	assert.Equal(t, "1+1?", st.Current.Text)
	base := "/api/sessions/" + st.SessionID

	code, _ = bob.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code, "other users cannot see the session")

	code, _ = ada.do(http.MethodPut, base+"/answer", map[string]any{"option": "a"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ada.do(http.MethodPut, base+"/answer", map[string]any{"option": "A"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[stateView](t, env.Data).AnsweredCount)

	code, env = ada.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[stateView](t, env.Data).CurrentIndex)
	code, env = ada.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[stateView](t, env.Data).CurrentIndex, "clamped at the last question")

	code, env = ada.do(http.MethodPost, base+"/goto", map[string]any{"index": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[stateView](t, env.Data).CurrentIndex)

	code, env = ada.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	pending := decode[struct {
		ConfirmationRequired bool   `json:"confirmationRequired"`
		SubmissionID         string `json:"submissionId"`
	}](t, env.Data)
	assert.True(t, pending.ConfirmationRequired)
	assert.Empty(t, pending.SubmissionID)

	code, env = ada.do(http.MethodPost, base+"/submit", map[string]any{"confirmed": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	done := decode[struct {
		SubmissionID string    `json:"submissionId"`
		State        stateView `json:"state"`
	}](t, env.Data)
	require.NotEmpty(t, done.SubmissionID)
	assert.Equal(t, "completed", done.State.Status)

	// 已完成的作答不再接受修改
	code, _ = ada.do(http.MethodPut, base+"/answer", map[string]any{"option": "B"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = ada.do(http.MethodGet, "/api/results/"+done.SubmissionID, nil)
	require.Equal(t, http.StatusOK, code)
	result := decode[struct {
		MarksObtained   int `json:"marksObtained"`
		TotalMarks      int `json:"totalMarks"`
		Percentage      int `json:"percentage"`
		CorrectCount    int `json:"correctCount"`
		UnansweredCount int `json:"unansweredCount"`
	}](t, env.Data)
	assert.Equal(t, 5, result.MarksObtained)
	assert.Equal(t, 10, result.TotalMarks)
	assert.Equal(t, 50, result.Percentage)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 1, result.UnansweredCount)

	code, _ = bob.do(http.MethodGet, "/api/results/"+done.SubmissionID, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = admin.do(http.MethodGet, "/api/results/"+done.SubmissionID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ada.do(http.MethodGet, "/api/mock-tests/"+testID+"/result", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = admin.do(http.MethodGet, "/api/admin/mock-tests/"+testID+"/submissions", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[struct {
		Total int `json:"total"`
	}](t, env.Data).Total)
}

func TestStartSessionUnknownTest(t *testing.T) {
	app := newTestApp(t)
	ada := app.client(t, "user-1", "Ada", model.Student)

	code, env := ada.do(http.MethodPost, "/api/mock-tests/missing/sessions", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, util.ErrTestNotFound.Error(), env.Message)
}

func TestAbandonSession(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t, "admin-1", "Root", model.Admin)
	ada := app.client(t, "user-1", "Ada", model.Student)
	testID := seedMockTest(t, admin)

	code, env := ada.do(http.MethodPost, "/api/mock-tests/"+testID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	st := decode[stateView](t, env.Data)

	code, _ = ada.do(http.MethodDelete, "/api/sessions/"+st.SessionID, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = ada.do(http.MethodGet, "/api/sessions/"+st.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = ada.do(http.MethodGet, "/api/results", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, decode[struct {
		Total int `json:"total"`
	}](t, env.Data).Total)
}

func TestAuthAndRoles(t *testing.T) {
	app := newTestApp(t)
	anonymous := &testClient{t: t, router: app.Router}
	ada := app.client(t, "user-1", "Ada", model.Student)

	code, _ := anonymous.do(http.MethodGet, "/api/mock-tests", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	forged := &testClient{t: t, router: app.Router, token: "forged"}
	code, _ = forged.do(http.MethodGet, "/api/mock-tests", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ada.do(http.MethodPost, "/api/admin/mock-tests", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env := anonymous.do(http.MethodGet, "/api/public/health", nil)
	require.Equal(t, http.StatusOK, code)
	health := decode[struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"activeSessions"`
	}](t, env.Data)
	assert.Equal(t, "ok", health.Status)
	assert.Zero(t, health.ActiveSessions)
}

func TestAdminValidation(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t, "admin-1", "Root", model.Admin)

	code, _ := admin.do(http.MethodPost, "/api/admin/mock-tests", map[string]any{"title": "t", "examId": "e", "duration": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	testID := seedMockTest(t, admin)
	code, _ = admin.do(http.MethodPost, "/api/admin/mock-tests/"+testID+"/questions", map[string]any{
		"question": "q", "optionA": "a", "optionB": "b", "optionC": "c", "optionD": "d", "correctOption": "E", "marks": 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := admin.do(http.MethodGet, "/api/mock-tests/"+testID, nil)
	require.Equal(t, http.StatusOK, code)
	test := decode[model.MockTest](t, env.Data)
	assert.Equal(t, 2, test.TotalQuestions)
	assert.Equal(t, 10, test.TotalMarks)
}

type sseEvent struct {
	name string
	data string
}

// nextEvent 读取下一条 SSE 事件，流结束时 ok 为 false
func nextEvent(sc *bufio.Scanner) (ev sseEvent, ok bool) {
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev, true
			}
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return ev, false
}

func TestSessionEventStream(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t, "admin-1", "Root", model.Admin)
	ada := app.client(t, "user-1", "Ada", model.Student)
	testID := seedMockTest(t, admin)

	code, env := ada.do(http.MethodPost, "/api/mock-tests/"+testID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	sessionID := decode[stateView](t, env.Data).SessionID
	base := "/api/sessions/" + sessionID

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(srv.URL + base + "/events?token=" + ada.token)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	sc := bufio.NewScanner(resp.Body)
	first, ok := nextEvent(sc)
	require.True(t, ok)
	assert.Equal(t, "state", first.name)
	var st stateView
	require.NoError(t, json.Unmarshal([]byte(first.data), &st))
	assert.Equal(t, sessionID, st.SessionID)
	assert.Equal(t, "in_progress", st.Status)

	code, env = ada.do(http.MethodPost, base+"/submit", map[string]any{"confirmed": true})
	require.Equal(t, http.StatusOK, code, env.Message)

	var completed *sseEvent
	for {
		ev, ok := nextEvent(sc)
		if !ok {
			break
		}
		if ev.name == "completed" {
			completed = &ev
			break
		}
		assert.Equal(t, "state", ev.name)
	}
	require.NotNil(t, completed, "completed event before the stream ends")
	require.NoError(t, json.Unmarshal([]byte(completed.data), &st))
	assert.Equal(t, "completed", st.Status)

	_, more := nextEvent(sc)
	assert.False(t, more, "stream closes after completion")
	require.NoError(t, sc.Err())
}

func TestSessionEventStreamRequiresToken(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t, "admin-1", "Root", model.Admin)
	ada := app.client(t, "user-1", "Ada", model.Student)
	testID := seedMockTest(t, admin)

	code, env := ada.do(http.MethodPost, "/api/mock-tests/"+testID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	sessionID := decode[stateView](t, env.Data).SessionID

	anonymous := &testClient{t: t, router: app.Router}
	code, _ = anonymous.do(http.MethodGet, "/api/sessions/"+sessionID+"/events", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
