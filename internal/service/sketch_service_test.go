package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"worthy-server/internal/models"
	"worthy-server/internal/repository/mocks"
	"worthy-server/internal/sketch"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newSketchServer поднимает фейковый image-сервис: URL с "broken" в промпте
// отвечает 500, остальные 200.
func newSketchServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSketchService(t *testing.T, baseURL string) (*SketchService, *mocks.SketchRepository) {
	t.Helper()
	generator := sketch.NewGenerator(baseURL, 2, time.Millisecond, zap.NewNop())
	sketchRepo := new(mocks.SketchRepository)
	return NewSketchService(generator, sketchRepo, zap.NewNop()), sketchRepo
}

func TestSketchService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		srv := newSketchServer(t)
		svc, sketchRepo := newTestSketchService(t, srv.URL+"/prompt/")

		panelID := 4
		sketchRepo.On("Insert", ctx, mock.MatchedBy(func(s *models.Sketch) bool {
			return s.Status == models.SketchStatusReady &&
				s.GeneratedAt != nil &&
				s.PanelID != nil && *s.PanelID == 4 &&
				strings.Contains(s.Prompt, "MC at the grave edge")
		})).Return(nil).Once()

		record, err := svc.Generate(ctx, "MC at the grave edge", "ink sketch", "ominous", &panelID)

		require.NoError(t, err)
		assert.Equal(t, models.SketchStatusReady, record.Status)
		assert.Contains(t, record.Prompt, "Style: ink sketch")
		assert.Contains(t, record.Prompt, "Mood: ominous")
		assert.Contains(t, record.ImageURL, srv.URL)
		sketchRepo.AssertExpectations(t)
	})

	t.Run("DefaultStyleAndMood", func(t *testing.T) {
		srv := newSketchServer(t)
		svc, sketchRepo := newTestSketchService(t, srv.URL+"/prompt/")

		sketchRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()

		record, err := svc.Generate(ctx, "scavengers circling", "", "", nil)

		require.NoError(t, err)
		assert.Contains(t, record.Prompt, "Style: "+sketch.DefaultStyle)
		assert.Contains(t, record.Prompt, "Mood: "+sketch.DefaultMood)
		assert.Nil(t, record.PanelID)
	})

	t.Run("VerificationFailed", func(t *testing.T) {
		srv := newSketchServer(t)
		svc, sketchRepo := newTestSketchService(t, srv.URL+"/prompt/")

		sketchRepo.On("Insert", ctx, mock.MatchedBy(func(s *models.Sketch) bool {
			return s.Status == models.SketchStatusFailed && s.GeneratedAt == nil
		})).Return(nil).Once()

		record, err := svc.Generate(ctx, "broken panel", "", "", nil)

		require.NoError(t, err)
		assert.Equal(t, models.SketchStatusFailed, record.Status)
		sketchRepo.AssertExpectations(t)
	})

	t.Run("InsertError", func(t *testing.T) {
		srv := newSketchServer(t)
		svc, sketchRepo := newTestSketchService(t, srv.URL+"/prompt/")

		sketchRepo.On("Insert", ctx, mock.Anything).Return(errors.New("db down")).Once()

		record, err := svc.Generate(ctx, "MC at the grave edge", "", "", nil)

		require.Error(t, err)
		assert.Nil(t, record)
	})
}

func TestSketchService_Get(t *testing.T) {
	ctx := context.Background()
	srv := newSketchServer(t)
	svc, sketchRepo := newTestSketchService(t, srv.URL+"/prompt/")

	id := uuid.New()
	sketchRepo.On("GetByID", ctx, id).Return(&models.Sketch{ID: id}, nil).Once()

	record, err := svc.Get(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, id, record.ID)

	missing := uuid.New()
	sketchRepo.On("GetByID", ctx, missing).Return(nil, models.ErrSketchNotFound).Once()

	_, err = svc.Get(ctx, missing)
	assert.ErrorIs(t, err, models.ErrSketchNotFound)
}
