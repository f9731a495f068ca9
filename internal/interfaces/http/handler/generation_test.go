package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"solidwriter-api/internal/application/generation"
	"solidwriter-api/internal/application/quota"
	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/infrastructure/persistence/postgres"
	"solidwriter-api/internal/interfaces/http/dto"
	"solidwriter-api/internal/interfaces/http/middleware"
	"solidwriter-api/internal/workflow/port"
	workflowprompt "solidwriter-api/internal/workflow/prompt"
)

type stubModel struct {
	reply  string
	chunks []string
	err    error
}

func (m *stubModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *stubModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.StreamReaderFromArray(toMessages(m.chunks)), nil
}

func toMessages(chunks []string) []*schema.Message {
	out := make([]*schema.Message, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, schema.AssistantMessage(c, nil))
	}
	return out
}

type stubFactory struct{ m *stubModel }

func (f stubFactory) Get(context.Context, string) (model.BaseChatModel, error) { return f.m, nil }
func (f stubFactory) Describe(string) port.ModelInfo {
	return port.ModelInfo{Provider: "stub", Model: "stub-1"}
}

type testEnv struct {
	engine *gin.Engine
	users  *postgres.UserRepository
	docs   *postgres.DocumentRepository
	model  *stubModel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	client := postgres.NewClientFromDB(db)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	users := postgres.NewUserRepository(client)
	docs := postgres.NewDocumentRepository(client)
	events := postgres.NewUsageEventRepository(client)
	ledger := quota.NewLedger(users, quota.Policy{DefaultUnitLimit: 25000, LegacyFloor: 25000, FlatCharge: 1})
	usage := quota.NewUsageService(users, events, ledger, nil)
	sm := &stubModel{}

	pipeline := generation.NewPipeline(users, docs, postgres.NewTxManager(client), ledger,
		quota.NewAccountant(ledger), usage, workflowprompt.NewBuilder(nil),
		generation.NewInvoker(stubFactory{m: sm}, ""), nil)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Identity"); id != "" {
			c.Set("identity", id)
			c.Request = c.Request.WithContext(middleware.WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	})
	gh := NewGenerationHandler(pipeline)
	uh := NewUserHandler(usage)
	engine.POST("/v1/generate", gh.Generate)
	engine.POST("/v1/generate/stream", gh.Stream)
	engine.GET("/v1/users/me/usage", uh.GetUsage)
	engine.GET("/v1/users/me/usage/events", uh.ListUsageEvents)

	return &testEnv{engine: engine, users: users, docs: docs, model: sm}
}

func (e *testEnv) do(t *testing.T, method, path, identity string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.Header.Set("X-Test-Identity", identity)
	}
	w := newStreamRecorder()
	e.engine.ServeHTTP(w, req)
	return w.ResponseRecorder
}

// streamRecorder 为 gin 的 c.Stream 补上 CloseNotify，连接在测试中始终保持打开
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func (e *testEnv) seed(t *testing.T, email string, consumed, limit int64) *entity.User {
	t.Helper()
	u := entity.NewUser(email, "", limit)
	u.ConsumedUnits = consumed
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func TestGenerate_TitlesResultIsParsableArray(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "w@example.com", 0, 25000)
	env.model.reply = "```json\n[\"A\",\"B\",\"C\"]\n```"

	w := env.do(t, http.MethodPost, "/v1/generate", "w@example.com", gin.H{"type": "titles", "topic": "tea"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, entity.ModeTitles, resp.Mode)
	assert.Equal(t, []string{"A", "B", "C"}, resp.Items)
	assert.Equal(t, int64(1), resp.UnitsConsumed)

	var parsed []string
	require.NoError(t, json.Unmarshal([]byte(resp.Result), &parsed))
	assert.Equal(t, resp.Items, parsed)
}

func TestGenerate_FreeformWritesDocumentIDCamelCase(t *testing.T) {
	env := newTestEnv(t)
	u := env.seed(t, "e@example.com", 0, 25000)
	doc := entity.NewDocument(u.ID, "Doc")
	require.NoError(t, env.docs.Create(context.Background(), doc))
	env.model.reply = "Some helpful text."

	w := env.do(t, http.MethodPost, "/v1/generate", "e@example.com", gin.H{
		"prompt":     "help",
		"tone":       "Professional",
		"documentId": doc.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Some helpful text.", resp.Content)
	assert.Equal(t, entity.ModeFreeform, resp.Mode)

	// freeform 不写回文档
	stored, err := env.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Content)
}

func TestGenerate_ErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "full@example.com", 25000, 25000)
	env.seed(t, "ok@example.com", 0, 25000)

	cases := []struct {
		name     string
		identity string
		body     any
		status   int
		code     string
	}{
		{"unauthorized", "", gin.H{"prompt": "x"}, http.StatusUnauthorized, "1002"},
		{"unknown user", "ghost@example.com", gin.H{"prompt": "x"}, http.StatusNotFound, "3005"},
		{"quota", "full@example.com", gin.H{"prompt": "x"}, http.StatusForbidden, "4007"},
		{"missing prompt", "ok@example.com", gin.H{"tone": "x"}, http.StatusBadRequest, "1001"},
		{"missing doc", "ok@example.com", gin.H{"prompt": "x", "document_id": "nope"}, http.StatusNotFound, "3006"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/generate", tc.identity, tc.body)
			assert.Equal(t, tc.status, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.ErrorCode)
		})
	}
}

func TestGenerate_ProviderErrorIs502(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "p@example.com", 0, 25000)
	env.model.err = errors.New("401 invalid api key")

	w := env.do(t, http.MethodPost, "/v1/generate", "p@example.com", gin.H{"prompt": "x"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "invalid api key")
}

func TestStream_EmitsContentThenDone(t *testing.T) {
	env := newTestEnv(t)
	u := env.seed(t, "s@example.com", 0, 25000)
	env.model.chunks = []string{"one ", "two ", "three"}

	w := env.do(t, http.MethodPost, "/v1/generate/stream", "s@example.com", gin.H{
		"type": "social", "platform": "X", "topic": "launch",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	first := strings.Index(body, `"chunk":"one "`)
	second := strings.Index(body, `"chunk":"two "`)
	done := strings.Index(body, "event:done")
	require.True(t, first >= 0 && second > first && done > second, body)
	assert.Contains(t, body, `"units_consumed":3`)

	after, err := env.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), after.ConsumedUnits)
}

func TestStream_BlankOutputReportsErrorEvent(t *testing.T) {
	env := newTestEnv(t)
	u := env.seed(t, "blank@example.com", 0, 25000)
	doc := entity.NewDocument(u.ID, "Doc")
	doc.Content = "existing content"
	require.NoError(t, env.docs.Create(context.Background(), doc))
	env.model.chunks = []string{"  "}

	w := env.do(t, http.MethodPost, "/v1/generate/stream", "blank@example.com", gin.H{
		"type": "article", "title": "x", "documentId": doc.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event:error")
	assert.Contains(t, w.Body.String(), `"code":"5005"`)
	assert.NotContains(t, w.Body.String(), "event:done")

	stored, err := env.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "existing content", stored.Content)
}

func TestStream_StructuredModeRejectedBeforeHeaders(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "st@example.com", 0, 25000)

	w := env.do(t, http.MethodPost, "/v1/generate/stream", "st@example.com", gin.H{"type": "outline", "title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/generate/stream", "", gin.H{"type": "titles", "topic": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsage_SnapshotAndEvents(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "u@example.com", 100, 25000)

	w := env.do(t, http.MethodGet, "/v1/users/me/usage", "u@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response[dto.UsageResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(100), resp.Data.ConsumedUnits)
	assert.Equal(t, int64(24900), resp.Data.Remaining)
	assert.Equal(t, entity.PlanTrial, resp.Data.Plan)

	w = env.do(t, http.MethodGet, "/v1/users/me/usage/events?page=1&page_size=5", "u@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/users/me/usage", "nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/users/me/usage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
