package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axops/axops-core/internal/config"
	"github.com/axops/axops-core/pkg/logger"
)

func TestMaintenanceWindowSameDay(t *testing.T) {
	svc, err := NewMaintenanceWindowService([]config.MaintenanceWindowConfig{
		{Name: "Nightly batch", Start: "22:00", End: "23:30", Enabled: true},
		{Name: "Disabled window", Start: "00:00", End: "23:59", Enabled: false},
	}, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	inside := time.Date(2026, 6, 1, 22, 30, 0, 0, time.UTC)
	suppressed, err := svc.IsSuppressed(ctx, inside)
	require.NoError(t, err)
	assert.True(t, suppressed)

	names, err := svc.ActiveWindowNames(ctx, inside)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nightly batch"}, names, "disabled windows never match")

	outside := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	suppressed, err = svc.IsSuppressed(ctx, outside)
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestMaintenanceWindowOvernightWrap(t *testing.T) {
	// Saturday 23:00 through Sunday 02:00.
	svc, err := NewMaintenanceWindowService([]config.MaintenanceWindowConfig{
		{Name: "Weekend patching", Start: "23:00", End: "02:00", Days: []string{"saturday"}, Enabled: true},
	}, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	// 2026-06-06 is a Saturday.
	saturdayNight := time.Date(2026, 6, 6, 23, 30, 0, 0, time.UTC)
	suppressed, err := svc.IsSuppressed(ctx, saturdayNight)
	require.NoError(t, err)
	assert.True(t, suppressed)

	sundayEarly := time.Date(2026, 6, 7, 1, 0, 0, 0, time.UTC)
	suppressed, err = svc.IsSuppressed(ctx, sundayEarly)
	require.NoError(t, err)
	assert.True(t, suppressed, "head after midnight belongs to the Saturday window")

	sundayNight := time.Date(2026, 6, 7, 23, 30, 0, 0, time.UTC)
	suppressed, err = svc.IsSuppressed(ctx, sundayNight)
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestMaintenanceWindowRejectsBadConfig(t *testing.T) {
	_, err := NewMaintenanceWindowService([]config.MaintenanceWindowConfig{
		{Name: "Broken", Start: "25:99", End: "02:00", Enabled: true},
	}, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")

	_, err = NewMaintenanceWindowService([]config.MaintenanceWindowConfig{
		{Name: "Bad day", Start: "01:00", End: "02:00", Days: []string{"funday"}, Enabled: true},
	}, logger.NewNop())
	require.Error(t, err)
}
