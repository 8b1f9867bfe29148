package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"worthy-server/internal/models"
	"worthy-server/internal/repository/mocks"
	"worthy-server/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

func newTestReaderService(t *testing.T) (*ReaderService, *mocks.ChapterRepository, *mocks.ReaderProgressRepository, *mockAIClient) {
	t.Helper()
	chapterRepo := new(mocks.ChapterRepository)
	progressRepo := new(mocks.ReaderProgressRepository)
	aiClient := new(mockAIClient)
	svc := NewReaderService(chapterRepo, progressRepo, aiClient, zap.NewNop())
	return svc, chapterRepo, progressRepo, aiClient
}

func TestReaderService_SaveProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, chapterRepo, progressRepo, _ := newTestReaderService(t)
		chapterRepo.On("GetMetadata", ctx, "ch01_opening").
			Return(&models.ChapterMetadata{ChapterID: "ch01_opening"}, nil).Once()
		progressRepo.On("Upsert", ctx, mock.MatchedBy(func(p *models.ReaderProgress) bool {
			return p.UserID == "reader-1" && p.ChapterID == "ch01_opening" && p.PanelIndex == 7
		})).Return(nil).Once()

		err := svc.SaveProgress(ctx, "ch01_opening", "reader-1", 7, json.RawMessage(`["a"]`))

		require.NoError(t, err)
		chapterRepo.AssertExpectations(t)
		progressRepo.AssertExpectations(t)
	})

	t.Run("ChapterNotFound", func(t *testing.T) {
		svc, chapterRepo, progressRepo, _ := newTestReaderService(t)
		chapterRepo.On("GetMetadata", ctx, "ch99").
			Return(nil, models.ErrChapterNotFound).Once()

		err := svc.SaveProgress(ctx, "ch99", "reader-1", 0, nil)

		assert.ErrorIs(t, err, models.ErrChapterNotFound)
		progressRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestReaderService_GenerateContinuation(t *testing.T) {
	ctx := context.Background()
	choiceCtx := ChoiceContext{
		CurrentPanel:     14,
		MCVoice:          "dry, tired, quietly stubborn",
		SceneDescription: "MC crouches at the grave's edge as scavengers circle",
	}

	t.Run("Success", func(t *testing.T) {
		svc, _, _, aiClient := newTestReaderService(t)
		aiClient.On("Generate", ctx, mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "take the horn") &&
				strings.Contains(prompt, choiceCtx.SceneDescription) &&
				strings.Contains(prompt, choiceCtx.MCVoice)
		}), mock.MatchedBy(func(opts ai.Options) bool {
			return opts.Temperature == 0.8 && opts.MaxTokens == 1500
		})).Return(&ai.Result{Content: "The horn hums against his palm.", TokensUsed: 320}, nil).Once()

		continuation, err := svc.GenerateContinuation(ctx, "choice_horn", "take the horn", choiceCtx)

		require.NoError(t, err)
		assert.Equal(t, "choice_horn", continuation.ChoiceID)
		require.Len(t, continuation.NextPanels, 1)
		assert.Equal(t, 15, continuation.NextPanels[0].PanelID)
		assert.Equal(t, "The horn hums against his palm.", continuation.NextPanels[0].Narration)
		aiClient.AssertExpectations(t)
	})

	t.Run("GenerationError", func(t *testing.T) {
		svc, _, _, aiClient := newTestReaderService(t)
		aiClient.On("Generate", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("api down")).Once()

		continuation, err := svc.GenerateContinuation(ctx, "choice_horn", "take the horn", choiceCtx)

		require.Error(t, err)
		assert.Nil(t, continuation)
		assert.Contains(t, err.Error(), "choice_horn")
	})
}

func TestReaderService_ValidateChoice(t *testing.T) {
	svc, _, _, _ := newTestReaderService(t)

	assert.True(t, svc.ValidateChoice("choice_horn", "take the horn"))
	assert.False(t, svc.ValidateChoice("", "take the horn"))
	assert.False(t, svc.ValidateChoice("choice_horn", ""))
}
