package worker

import (
	"context"
	"errors"
	"testing"

	"worthy-server/internal/messaging"
	"worthy-server/internal/models"
	"worthy-server/internal/service"
	"worthy-server/pkg/ai"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOrchestrator struct {
	mock.Mock
}

func (m *mockOrchestrator) GetPageContext(ctx context.Context, pageID uuid.UUID) (*models.StoryPage, error) {
	args := m.Called(ctx, pageID)
	page, _ := args.Get(0).(*models.StoryPage)
	return page, args.Error(1)
}
func (m *mockOrchestrator) UpdateNarration(ctx context.Context, pageID uuid.UUID, narrationText string, meta *models.AgentMetadata) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID, narrationText, meta)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) UpdateDialogue(ctx context.Context, pageID uuid.UUID, dialogue []models.DialogueLine, meta *models.AgentMetadata) (*service.TransitionResult, error) {
	args := m.Called(ctx, pageID, dialogue, meta)
	result, _ := args.Get(0).(*service.TransitionResult)
	return result, args.Error(1)
}
func (m *mockOrchestrator) MarkPageError(ctx context.Context, pageID uuid.UUID, reason string) error {
	args := m.Called(ctx, pageID, reason)
	return args.Error(0)
}

type mockAssembler struct {
	mock.Mock
}

func (m *mockAssembler) BuildContext(ctx context.Context, chapterID string, pageNumber int, userInput string) (*models.AgentContext, error) {
	args := m.Called(ctx, chapterID, pageNumber, userInput)
	agentCtx, _ := args.Get(0).(*models.AgentContext)
	return agentCtx, args.Error(1)
}
func (m *mockAssembler) FormatContextForPrompt(agentCtx *models.AgentContext) string {
	args := m.Called(agentCtx)
	return args.String(0)
}
func (m *mockAssembler) GetPageFeedback(ctx context.Context, pageID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, pageID)
	feedback, _ := args.Get(0).([]string)
	return feedback, args.Error(1)
}

type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ai.Options) (*ai.Result, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, opts)
	result, _ := args.Get(0).(*ai.Result)
	return result, args.Error(1)
}
func (m *mockAIClient) ModelName() string {
	args := m.Called()
	return args.String(0)
}

func newTestHandler(t *testing.T) (*Handler, *mockOrchestrator, *mockAssembler, *mockAIClient) {
	t.Helper()
	orch := new(mockOrchestrator)
	asm := new(mockAssembler)
	client := new(mockAIClient)
	return NewHandler(orch, asm, client, zap.NewNop()), orch, asm, client
}

func TestHandler_HandleTask_Narration(t *testing.T) {
	ctx := context.Background()
	pageID := uuid.New()
	page := &models.StoryPage{ID: pageID, ChapterID: "ch01", PageNumber: 2, UserInput: "He stands up", Status: models.StateGeneratingNarration}
	agentCtx := &models.AgentContext{CurrentPage: models.CurrentPageInfo{PageNumber: 2, UserInput: "He stands up"}}

	t.Run("Success", func(t *testing.T) {
		handler, orch, asm, client := newTestHandler(t)

		orch.On("GetPageContext", ctx, pageID).Return(page, nil).Once()
		asm.On("BuildContext", ctx, "ch01", 2, "He stands up").Return(agentCtx, nil).Once()
		asm.On("FormatContextForPrompt", agentCtx).Return("CONTEXT").Once()
		client.On("Generate", ctx, mock.Anything, "CONTEXT", mock.MatchedBy(func(opts ai.Options) bool {
			return !opts.RequireJSON
		})).Return(&ai.Result{Content: "He opens his eyes.", Model: "m1", TokensUsed: 120}, nil).Once()
		orch.On("UpdateNarration", ctx, pageID, "He opens his eyes.", mock.MatchedBy(func(meta *models.AgentMetadata) bool {
			return meta != nil && *meta.Model == "m1" && *meta.TokensUsed == 120
		})).Return(&service.TransitionResult{NewState: models.StateUserReviewingNarration, Version: 1}, nil).Once()

		err := handler.HandleTask(ctx, messaging.GenerationTaskPayload{
			TaskID: uuid.New(), PageID: pageID, ChapterID: "ch01", TaskType: messaging.TaskTypeNarration,
		})
		require.NoError(t, err)
		orch.AssertExpectations(t)
		asm.AssertExpectations(t)
		client.AssertExpectations(t)
	})

	t.Run("RevisionIncludesFeedback", func(t *testing.T) {
		handler, orch, asm, client := newTestHandler(t)

		orch.On("GetPageContext", ctx, pageID).Return(page, nil).Once()
		asm.On("BuildContext", ctx, "ch01", 2, "He stands up").Return(agentCtx, nil).Once()
		asm.On("FormatContextForPrompt", agentCtx).Return("CONTEXT").Once()
		asm.On("GetPageFeedback", ctx, pageID).Return([]string{"more tension"}, nil).Once()
		client.On("Generate", ctx, mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return prompt == "CONTEXT\n# REVISION FEEDBACK (NEWEST FIRST)\n\n- more tension\n"
		}), mock.Anything).Return(&ai.Result{Content: "Revised.", Model: "m1", TokensUsed: 90}, nil).Once()
		orch.On("UpdateNarration", ctx, pageID, "Revised.", mock.Anything).
			Return(&service.TransitionResult{NewState: models.StateUserReviewingNarration, Version: 2}, nil).Once()

		err := handler.HandleTask(ctx, messaging.GenerationTaskPayload{
			TaskID: uuid.New(), PageID: pageID, ChapterID: "ch01",
			TaskType: messaging.TaskTypeNarration, Feedback: "more tension",
		})
		require.NoError(t, err)
		asm.AssertExpectations(t)
		client.AssertExpectations(t)
	})

	t.Run("GenerationFailureMarksPageError", func(t *testing.T) {
		handler, orch, asm, client := newTestHandler(t)

		orch.On("GetPageContext", ctx, pageID).Return(page, nil).Once()
		asm.On("BuildContext", ctx, "ch01", 2, "He stands up").Return(agentCtx, nil).Once()
		asm.On("FormatContextForPrompt", agentCtx).Return("CONTEXT").Once()
		client.On("Generate", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("upstream down")).Once()
		orch.On("MarkPageError", ctx, pageID, mock.MatchedBy(func(reason string) bool {
			return reason != ""
		})).Return(nil).Once()

		err := handler.HandleTask(ctx, messaging.GenerationTaskPayload{
			TaskID: uuid.New(), PageID: pageID, ChapterID: "ch01", TaskType: messaging.TaskTypeNarration,
		})
		assert.Error(t, err)
		orch.AssertExpectations(t)
	})
}

func TestHandler_HandleTask_Dialogue(t *testing.T) {
	ctx := context.Background()
	pageID := uuid.New()
	narration := "He opens his eyes."
	page := &models.StoryPage{
		ID: pageID, ChapterID: "ch01", PageNumber: 2, UserInput: "He stands up",
		NarrationText: &narration, Status: models.StateGeneratingDialogue,
	}
	agentCtx := &models.AgentContext{}

	t.Run("Success", func(t *testing.T) {
		handler, orch, asm, client := newTestHandler(t)

		orch.On("GetPageContext", ctx, pageID).Return(page, nil).Once()
		asm.On("BuildContext", ctx, "ch01", 2, "He stands up").Return(agentCtx, nil).Once()
		asm.On("FormatContextForPrompt", agentCtx).Return("CONTEXT").Once()
		client.On("Generate", ctx, mock.Anything, mock.MatchedBy(func(prompt string) bool {
			// Одобренная наррация добавляется к контексту диалога.
			return prompt == "CONTEXT\n# APPROVED NARRATION\n\nHe opens his eyes.\n"
		}), mock.MatchedBy(func(opts ai.Options) bool {
			return opts.RequireJSON
		})).Return(&ai.Result{Content: `[{"speaker":"MC","text":"Where am I?"}]`, Model: "m1", TokensUsed: 60}, nil).Once()
		orch.On("UpdateDialogue", ctx, pageID, []models.DialogueLine{{Speaker: "MC", Text: "Where am I?"}}, mock.Anything).
			Return(&service.TransitionResult{NewState: models.StateUserReviewingDialogue, Version: 1}, nil).Once()

		err := handler.HandleTask(ctx, messaging.GenerationTaskPayload{
			TaskID: uuid.New(), PageID: pageID, ChapterID: "ch01", TaskType: messaging.TaskTypeDialogue,
		})
		require.NoError(t, err)
		orch.AssertExpectations(t)
		client.AssertExpectations(t)
	})

	t.Run("MalformedJSONMarksPageError", func(t *testing.T) {
		handler, orch, asm, client := newTestHandler(t)

		orch.On("GetPageContext", ctx, pageID).Return(page, nil).Once()
		asm.On("BuildContext", ctx, "ch01", 2, "He stands up").Return(agentCtx, nil).Once()
		asm.On("FormatContextForPrompt", agentCtx).Return("CONTEXT").Once()
		client.On("Generate", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(&ai.Result{Content: `{"not":"an array"}`, Model: "m1"}, nil).Once()
		orch.On("MarkPageError", ctx, pageID, mock.Anything).Return(nil).Once()

		err := handler.HandleTask(ctx, messaging.GenerationTaskPayload{
			TaskID: uuid.New(), PageID: pageID, ChapterID: "ch01", TaskType: messaging.TaskTypeDialogue,
		})
		assert.Error(t, err)
		orch.AssertExpectations(t)
	})
}

func TestHandler_HandleTask_UnknownType(t *testing.T) {
	ctx := context.Background()
	pageID := uuid.New()
	handler, orch, asm, _ := newTestHandler(t)
	page := &models.StoryPage{ID: pageID, ChapterID: "ch01", PageNumber: 1}
	agentCtx := &models.AgentContext{}

	orch.On("GetPageContext", ctx, pageID).Return(page, nil).Once()
	asm.On("BuildContext", ctx, "ch01", 1, "").Return(agentCtx, nil).Once()
	asm.On("FormatContextForPrompt", agentCtx).Return("CONTEXT").Once()
	orch.On("MarkPageError", ctx, pageID, mock.Anything).Return(nil).Once()

	err := handler.HandleTask(ctx, messaging.GenerationTaskPayload{
		TaskID: uuid.New(), PageID: pageID, ChapterID: "ch01", TaskType: "storyboard",
	})
	assert.Error(t, err)
}
