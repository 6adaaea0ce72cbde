package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/errors"
	"github.com/turtacn/sentra/pkg/logger"
)

func newTestHistorian(repo *fakeIncidentRepo) *Historian {
	h := NewHistorian(repo, nil, logger.NewNoopLogger())
	h.sleep = func(time.Duration) {}
	return h
}

func TestPersistSucceedsFirstAttempt(t *testing.T) {
	repo := &fakeIncidentRepo{}
	h := newTestHistorian(repo)

	err := h.Persist(context.Background(), &models.Incident{ID: "inc-1", TenantID: "demo"})
	require.NoError(t, err)
	assert.Len(t, repo.appended, 1)
}

func TestPersistRetriesTransientFailure(t *testing.T) {
	repo := &fakeIncidentRepo{failAppends: 2}
	h := newTestHistorian(repo)

	err := h.Persist(context.Background(), &models.Incident{ID: "inc-1", TenantID: "demo"})
	require.NoError(t, err)
	assert.Len(t, repo.appended, 1)
}

func TestPersistGivesUpAfterMaxAttempts(t *testing.T) {
	repo := &fakeIncidentRepo{failAppends: constants.PersistMaxAttempts}
	h := newTestHistorian(repo)

	err := h.Persist(context.Background(), &models.Incident{ID: "inc-1", TenantID: "demo"})
	require.Error(t, err)
	serr, ok := errors.AsSentraError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodePersistenceFailure, serr.Code())
	assert.Empty(t, repo.appended)
}
