package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"worthy-server/internal/compiler"
	"worthy-server/internal/models"
	"worthy-server/internal/service"
)

// --- Mocks ---

type mockOrchestrator struct{ mock.Mock }

func (m *mockOrchestrator) StartPage(ctx context.Context, chapterID, userInput string) (*models.StoryPage, error) {
	args := m.Called(ctx, chapterID, userInput)
	page, _ := args.Get(0).(*models.StoryPage)
	return page, args.Error(1)
}
func (m *mockOrchestrator) UpdateNarration(ctx context.Context, pageID uuid.UUID, narrationText string, meta *models.AgentMetadata) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID, narrationText, meta)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) ApproveNarration(ctx context.Context, pageID uuid.UUID) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) RequestNarrationRevision(ctx context.Context, pageID uuid.UUID, feedbackText string) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID, feedbackText)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) UpdateDialogue(ctx context.Context, pageID uuid.UUID, dialogue []models.DialogueLine, meta *models.AgentMetadata) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID, dialogue, meta)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) ApproveDialogue(ctx context.Context, pageID uuid.UUID) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) GetPageContext(ctx context.Context, pageID uuid.UUID) (*models.StoryPage, error) {
	args := m.Called(ctx, pageID)
	page, _ := args.Get(0).(*models.StoryPage)
	return page, args.Error(1)
}
func (m *mockOrchestrator) GetPageHistory(ctx context.Context, pageID uuid.UUID) (*service.PageHistory, error) {
	args := m.Called(ctx, pageID)
	history, _ := args.Get(0).(*service.PageHistory)
	return history, args.Error(1)
}
func (m *mockOrchestrator) ListChapterProgress(ctx context.Context) ([]models.ChapterProgress, error) {
	args := m.Called(ctx)
	progress, _ := args.Get(0).([]models.ChapterProgress)
	return progress, args.Error(1)
}
func (m *mockOrchestrator) ListChapterPages(ctx context.Context, chapterID string) ([]models.PageStatusSummary, error) {
	args := m.Called(ctx, chapterID)
	pages, _ := args.Get(0).([]models.PageStatusSummary)
	return pages, args.Error(1)
}

type mockContexts struct{ mock.Mock }

func (m *mockContexts) BuildContext(ctx context.Context, chapterID string, pageNumber int, userInput string) (*models.AgentContext, error) {
	args := m.Called(ctx, chapterID, pageNumber, userInput)
	agentCtx, _ := args.Get(0).(*models.AgentContext)
	return agentCtx, args.Error(1)
}
func (m *mockContexts) FormatContextForPrompt(agentCtx *models.AgentContext) string {
	return m.Called(agentCtx).String(0)
}

type mockReader struct{ mock.Mock }

func (m *mockReader) GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	args := m.Called(ctx, chapterID)
	chapter, _ := args.Get(0).(*models.Chapter)
	return chapter, args.Error(1)
}
func (m *mockReader) SaveProgress(ctx context.Context, chapterID, userID string, panelIndex int, choicesPath json.RawMessage) error {
	return m.Called(ctx, chapterID, userID, panelIndex, choicesPath).Error(0)
}
func (m *mockReader) GenerateContinuation(ctx context.Context, choiceID, selectedBranch string, choiceCtx service.ChoiceContext) (*service.Continuation, error) {
	args := m.Called(ctx, choiceID, selectedBranch, choiceCtx)
	continuation, _ := args.Get(0).(*service.Continuation)
	return continuation, args.Error(1)
}
func (m *mockReader) ValidateChoice(choiceID, selectedBranch string) bool {
	return m.Called(choiceID, selectedBranch).Bool(0)
}

type mockSketches struct{ mock.Mock }

func (m *mockSketches) Generate(ctx context.Context, prompt, style, mood string, panelID *int) (*models.Sketch, error) {
	args := m.Called(ctx, prompt, style, mood, panelID)
	sketch, _ := args.Get(0).(*models.Sketch)
	return sketch, args.Error(1)
}
func (m *mockSketches) Get(ctx context.Context, id uuid.UUID) (*models.Sketch, error) {
	args := m.Called(ctx, id)
	sketch, _ := args.Get(0).(*models.Sketch)
	return sketch, args.Error(1)
}

type mockPipeline struct{ mock.Mock }

func (m *mockPipeline) CreateChapter(ctx context.Context, req compiler.CreateChapterRequest) (*compiler.CreateChapterResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*compiler.CreateChapterResult)
	return result, args.Error(1)
}
func (m *mockPipeline) ChapterStatus(chapterID string) (*compiler.Manifest, error) {
	args := m.Called(chapterID)
	manifest, _ := args.Get(0).(*compiler.Manifest)
	return manifest, args.Error(1)
}

type handlerMocks struct {
	orchestrator *mockOrchestrator
	contexts     *mockContexts
	reader       *mockReader
	sketches     *mockSketches
	pipeline     *mockPipeline
}

func newTestRouter(t *testing.T) (*gin.Engine, *handlerMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := &handlerMocks{
		orchestrator: new(mockOrchestrator),
		contexts:     new(mockContexts),
		reader:       new(mockReader),
		sketches:     new(mockSketches),
		pipeline:     new(mockPipeline),
	}
	h := NewHandler(m.orchestrator, m.contexts, m.reader, m.sketches, m.pipeline, zap.NewNop())

	router := gin.New()
	h.RegisterRoutes(router)
	return router, m
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStartPage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, m := newTestRouter(t)
		page := &models.StoryPage{
			ID:        uuid.New(),
			ChapterID: "ch01_opening",
			UserInput: "MC wakes up",
			Status:    models.StateGeneratingNarration,
		}
		m.orchestrator.On("StartPage", mock.Anything, "ch01_opening", "MC wakes up").Return(page, nil)

		w := doJSON(t, router, http.MethodPost, "/api/orchestrator/start-page", gin.H{
			"chapterId": "ch01_opening",
			"userInput": "MC wakes up",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var got models.StoryPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, page.ID, got.ID)
		assert.Equal(t, models.StateGeneratingNarration, got.Status)
		m.orchestrator.AssertExpectations(t)
	})

	t.Run("MissingUserInput", func(t *testing.T) {
		router, m := newTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/api/orchestrator/start-page", gin.H{
			"chapterId": "ch01_opening",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.orchestrator.AssertNotCalled(t, "StartPage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownChapter", func(t *testing.T) {
		router, m := newTestRouter(t)
		m.orchestrator.On("StartPage", mock.Anything, "ch99", "input").Return(nil, models.ErrChapterNotFound)

		w := doJSON(t, router, http.MethodPost, "/api/orchestrator/start-page", gin.H{
			"chapterId": "ch99",
			"userInput": "input",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUpdateNarration(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	m.orchestrator.On("UpdateNarration", mock.Anything, id, "He opens his eyes.",
		mock.MatchedBy(func(meta *models.AgentMetadata) bool {
			return meta != nil && meta.Model != nil && *meta.Model == "test-model"
		}),
	).Return(&service.TransitionResult{PageID: id, NewState: models.StateUserReviewingNarration, Version: 1}, nil)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/orchestrator/page/%s/narration", id), gin.H{
		"narrationText": "He opens his eyes.",
		"agentModel":    "test-model",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var result service.TransitionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.StateUserReviewingNarration, result.NewState)
	assert.Equal(t, 1, result.Version)
	m.orchestrator.AssertExpectations(t)
}

func TestUpdateNarration_HumanAuthorPassesNilMeta(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	m.orchestrator.On("UpdateNarration", mock.Anything, id, "Manual edit.", (*models.AgentMetadata)(nil)).
		Return(&service.TransitionResult{PageID: id, NewState: models.StateUserReviewingNarration, Version: 2}, nil)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/orchestrator/page/%s/narration", id), gin.H{
		"narrationText": "Manual edit.",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	m.orchestrator.AssertExpectations(t)
}

func TestApproveNarration_InvalidState(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	m.orchestrator.On("ApproveNarration", mock.Anything, id).
		Return(nil, fmt.Errorf("approve narration в состоянии awaiting_user_input: %w", models.ErrInvalidState))

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/orchestrator/page/%s/approve-narration", id), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPageRoutes_InvalidUUID(t *testing.T) {
	router, m := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/orchestrator/page/not-a-uuid/status", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.orchestrator.AssertNotCalled(t, "GetPageContext", mock.Anything, mock.Anything)
}

func TestUpdateDialogue(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	dialogue := []models.DialogueLine{{Speaker: "MC", Text: "Where am I?"}}
	m.orchestrator.On("UpdateDialogue", mock.Anything, id, dialogue, (*models.AgentMetadata)(nil)).
		Return(&service.TransitionResult{PageID: id, NewState: models.StateUserReviewingDialogue, Version: 1}, nil)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/orchestrator/page/%s/dialogue", id), gin.H{
		"dialogue": dialogue,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	m.orchestrator.AssertExpectations(t)
}

func TestGetPageContext(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	page := &models.StoryPage{
		ID:         id,
		ChapterID:  "ch01_opening",
		PageNumber: 3,
		UserInput:  "MC digs out",
		Status:     models.StateUserReviewingNarration,
	}
	agentCtx := &models.AgentContext{
		CurrentPage: models.CurrentPageInfo{PageNumber: 3, UserInput: "MC digs out"},
	}
	m.orchestrator.On("GetPageContext", mock.Anything, id).Return(page, nil)
	m.contexts.On("BuildContext", mock.Anything, "ch01_opening", 3, "MC digs out").Return(agentCtx, nil)
	m.contexts.On("FormatContextForPrompt", agentCtx).Return("# CANONICAL REFERENCES\n")

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/orchestrator/page/%s/context", id), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp pageContextResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id.String(), resp.PageID)
	assert.Equal(t, "# CANONICAL REFERENCES\n", resp.FormattedPrompt)
	m.contexts.AssertExpectations(t)
}

func TestGetPageHistory(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	m.orchestrator.On("GetPageHistory", mock.Anything, id).Return(&service.PageHistory{
		Revisions: []models.PageRevision{{ID: uuid.New(), PageID: id, RevisionType: models.RevisionNarration, VersionNumber: 1}},
		Feedback:  []models.UserFeedback{},
	}, nil)

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/orchestrator/page/%s/history", id), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var history service.PageHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history.Revisions, 1)
}

func TestListChapterProgress(t *testing.T) {
	router, m := newTestRouter(t)
	now := time.Now()
	m.orchestrator.On("ListChapterProgress", mock.Anything).Return([]models.ChapterProgress{
		{ChapterID: "ch01_opening", Title: "The Grave", TotalPages: 4, ApprovedPages: 2, LastActivity: &now},
	}, nil)

	w := doJSON(t, router, http.MethodGet, "/api/orchestrator/chapters", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"chapters"`)
	assert.Contains(t, w.Body.String(), "ch01_opening")
}

func TestGetChapter_NotFound(t *testing.T) {
	router, m := newTestRouter(t)
	m.reader.On("GetChapter", mock.Anything, "ch99").Return(nil, models.ErrChapterNotFound)

	w := doJSON(t, router, http.MethodGet, "/api/chapters/ch99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Chapter not found"}`, w.Body.String())
}

func TestSaveProgress(t *testing.T) {
	router, m := newTestRouter(t)
	m.reader.On("SaveProgress", mock.Anything, "ch01_opening", "user-7", 12,
		json.RawMessage(`["a","b"]`)).Return(nil)

	w := doJSON(t, router, http.MethodPost, "/api/chapters/ch01_opening/progress", gin.H{
		"userId":      "user-7",
		"panelIndex":  12,
		"choicesPath": []string{"a", "b"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	m.reader.AssertExpectations(t)
}

func TestGenerateContinuation(t *testing.T) {
	router, m := newTestRouter(t)
	m.reader.On("GenerateContinuation", mock.Anything, "choice-1", "fight",
		service.ChoiceContext{CurrentPanel: 5, MCVoice: "tired", SceneDescription: "mud"}).
		Return(&service.Continuation{
			ChoiceID:   "choice-1",
			NextPanels: []service.ContinuationPanel{{PanelID: 6, Narration: "He swings."}},
		}, nil)

	w := doJSON(t, router, http.MethodPost, "/api/choices/generate-continuation", gin.H{
		"choiceId":       "choice-1",
		"selectedBranch": "fight",
		"context":        gin.H{"currentPanel": 5, "mcVoice": "tired", "sceneDescription": "mud"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "He swings.")
}

func TestValidateChoice(t *testing.T) {
	router, m := newTestRouter(t)
	m.reader.On("ValidateChoice", "choice-1", "").Return(false)

	w := doJSON(t, router, http.MethodPost, "/api/choices/validate", gin.H{"choiceId": "choice-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":false}`, w.Body.String())
}

func TestGenerateSketch(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	m.sketches.On("Generate", mock.Anything, "mass grave", "grim ink", "", (*int)(nil)).
		Return(&models.Sketch{ID: id, Prompt: "mass grave", Status: models.SketchStatusReady}, nil)

	w := doJSON(t, router, http.MethodPost, "/api/sketches/generate", gin.H{
		"prompt": "mass grave",
		"style":  "grim ink",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestGetSketch_NotFound(t *testing.T) {
	router, m := newTestRouter(t)
	id := uuid.New()
	m.sketches.On("Get", mock.Anything, id).Return(nil, models.ErrSketchNotFound)

	w := doJSON(t, router, http.MethodGet, "/api/sketches/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateChapter(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, m := newTestRouter(t)
		m.pipeline.On("CreateChapter", mock.Anything, compiler.CreateChapterRequest{
			ID: "ch02_horn", Title: "The Horn", Narrative: "A horn sounds.", Panels: 20,
		}).Return(&compiler.CreateChapterResult{
			ChapterID:   "ch02_horn",
			ChapterPath: "/chapters/ch02_horn",
			PanelCount:  20,
		}, nil)

		w := doJSON(t, router, http.MethodPost, "/api/admin/chapters/create", gin.H{
			"id": "ch02_horn", "title": "The Horn", "narrative": "A horn sounds.", "panels": 20,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp createChapterResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "ch02_horn", resp.ChapterID)
	})

	t.Run("MissingFields", func(t *testing.T) {
		router, m := newTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/api/admin/chapters/create", gin.H{"id": "ch02"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.pipeline.AssertNotCalled(t, "CreateChapter", mock.Anything, mock.Anything)
	})
}

func TestChapterStatus(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, m := newTestRouter(t)
		m.pipeline.On("ChapterStatus", "ch01_opening").Return(&compiler.Manifest{
			ChapterID:  "ch01_opening",
			PanelCount: 12,
			StyleID:    "grave_black_ink",
			Images:     &compiler.ImageStats{Succeeded: 10, TotalPanels: 12},
		}, nil)

		w := doJSON(t, router, http.MethodGet, "/api/admin/chapters/ch01_opening/status", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"complete"`)
		assert.Contains(t, w.Body.String(), `"succeeded":10`)
	})

	t.Run("NotFound", func(t *testing.T) {
		router, m := newTestRouter(t)
		m.pipeline.On("ChapterStatus", "ch99").Return(nil, models.ErrChapterNotFound)

		w := doJSON(t, router, http.MethodGet, "/api/admin/chapters/ch99/status", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
