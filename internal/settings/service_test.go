package settings_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/settings"
	"github.com/sunsafe/sunsafe/internal/uv"
)

func newService(now time.Time) *settings.Service {
	return settings.NewService(settings.ServiceConfig{
		Repository: settings.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return now },
	})
}

func TestService_Get_DefaultsWhenMissing(t *testing.T) {
	svc := newService(time.Now())

	got, err := svc.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, settings.Default("user-1"), got)
	assert.Equal(t, uv.SkinTypeII, got.SkinType)
	assert.Equal(t, 30.0, got.SPF)
	assert.True(t, got.AlertsEnabled)
}

func TestService_Update_PersistsAndNotifies(t *testing.T) {
	now := time.Date(2025, time.May, 3, 10, 0, 0, 0, time.UTC)
	svc := newService(now)
	ctx := context.Background()

	var notified []settings.Settings
	svc.Subscribe(func(_ context.Context, s settings.Settings) { notified = append(notified, s) })

	in := settings.Default("user-1")
	in.SkinType = uv.SkinTypeV
	in.SPF = 50
	in.Cloud = uv.CloudOvercast
	in.ColorblindSafe = true

	saved, err := svc.Update(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, now, saved.UpdatedAt)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	require.Len(t, notified, 1)
	assert.Equal(t, uv.SkinTypeV, notified[0].SkinType)
}

func TestService_Update_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*settings.Settings)
	}{
		{"missing user", func(s *settings.Settings) { s.UserID = "" }},
		{"bad skin type", func(s *settings.Settings) { s.SkinType = 7 }},
		{"bad cloud", func(s *settings.Settings) { s.Cloud = -1 }},
		{"negative spf", func(s *settings.Settings) { s.SPF = -1 }},
		{"nan spf", func(s *settings.Settings) { s.SPF = math.NaN() }},
		{"negative aqi", func(s *settings.Settings) { s.AQI = -10 }},
		{"infinite aqi", func(s *settings.Settings) { s.AQI = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(time.Now())
			in := settings.Default("user-1")
			tt.mutate(&in)

			_, err := svc.Update(context.Background(), in)
			assert.ErrorIs(t, err, settings.ErrInvalidSettings)
		})
	}
}

func TestService_Update_AllowsSPFBelowOne(t *testing.T) {
	svc := newService(time.Now())
	in := settings.Default("user-1")
	in.SPF = 0

	_, err := svc.Update(context.Background(), in)
	assert.NoError(t, err)
}

func TestService_Reset(t *testing.T) {
	svc := newService(time.Now())
	ctx := context.Background()

	in := settings.Default("user-1")
	in.SPF = 15
	_, err := svc.Update(ctx, in)
	require.NoError(t, err)

	var notified []settings.Settings
	svc.Subscribe(func(_ context.Context, s settings.Settings) { notified = append(notified, s) })

	reset, err := svc.Reset(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, settings.Default("user-1"), reset)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.SPF)

	require.Len(t, notified, 1)
	assert.Equal(t, "user-1", notified[0].UserID)
	assert.Equal(t, 30.0, notified[0].SPF)
	assert.Equal(t, uv.SkinTypeII, notified[0].SkinType)

	_, err = svc.Reset(ctx, "")
	assert.ErrorIs(t, err, settings.ErrInvalidSettings)
}

func TestSettings_Apply(t *testing.T) {
	s := settings.Default("u")
	s.SkinType = uv.SkinTypeIV
	s.SPF = 15
	s.Cloud = uv.CloudPartlyCloudy
	s.AQI = 80

	in := s.Apply(uv.Inputs{Latitude: 10, Longitude: 20, Altitude: 300})

	assert.Equal(t, 10.0, in.Latitude)
	assert.Equal(t, 300.0, in.Altitude)
	assert.Equal(t, uv.SkinTypeIV, in.Skin)
	assert.Equal(t, 15.0, in.SPF)
	assert.Equal(t, uv.CloudPartlyCloudy, in.Cloud)
	assert.Equal(t, 80.0, in.AQI)
}
