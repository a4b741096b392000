package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 3, cfg.Scheduling.ClassTeacherMaxPerTeacher)
	assert.InDelta(t, 1.5, cfg.Scheduling.WorkloadHardCapRatio, 0.0001)
	assert.Equal(t, 5*time.Minute, cfg.Scheduling.GridCacheTTL)
	assert.Equal(t, 3, cfg.Scheduling.SerializableRetries)
	assert.Equal(t, time.Second, cfg.Audit.RetryDelay)
	assert.False(t, cfg.Redis.Enabled)
	assert.Nil(t, cfg.JWT.Audience)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_AUDIENCE", "timetable, admin ,")
	v.Set("ALLOWED_ORIGINS", "https://school.example")
	v.Set("WORKLOAD_HARD_CAP_RATIO", 2.0)
	v.Set("CLASS_TEACHER_MAX_PER_TEACHER", 5)
	v.Set("TIMETABLE_GRID_CACHE_TTL", "90s")
	v.Set("AUDIT_RETRY_DELAY", "not-a-duration")

	cfg := fromViper(v)
	assert.Equal(t, []string{"timetable", "admin"}, cfg.JWT.Audience)
	assert.Equal(t, []string{"https://school.example"}, cfg.CORS.AllowedOrigins)
	assert.InDelta(t, 2.0, cfg.Scheduling.WorkloadHardCapRatio, 0.0001)
	assert.Equal(t, 5, cfg.Scheduling.ClassTeacherMaxPerTeacher)
	assert.Equal(t, 90*time.Second, cfg.Scheduling.GridCacheTTL)
	assert.Equal(t, time.Second, cfg.Audit.RetryDelay)
}

func TestFromViperRejectsInvalidSchedulingLimits(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("WORKLOAD_HARD_CAP_RATIO", 0.5)
	v.Set("CLASS_TEACHER_MAX_PER_TEACHER", 0)

	cfg := fromViper(v)
	assert.InDelta(t, 1.5, cfg.Scheduling.WorkloadHardCapRatio, 0.0001)
	assert.Equal(t, 3, cfg.Scheduling.ClassTeacherMaxPerTeacher)
}
