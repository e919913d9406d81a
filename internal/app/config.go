package app

import (
	"github.com/hellocounsel/reports-backend/internal/clients/llm"
	"github.com/hellocounsel/reports-backend/internal/clients/sentry"
	"github.com/hellocounsel/reports-backend/internal/clients/vapi"
	"github.com/hellocounsel/reports-backend/internal/platform/envutil"
)

type Config struct {
	Port              int
	DataDir           string
	SourceDatabaseURL string
	DashboardBaseURL  string

	Vapi   vapi.Config
	Sentry sentry.Config
	LLM    llm.Config
}

func LoadConfig() Config {
	return Config{
		Port:              envutil.Int("PORT", 8080),
		DataDir:           envutil.String("DATA_DIR", "data"),
		SourceDatabaseURL: envutil.String("SOURCE_DATABASE_URL", ""),
		DashboardBaseURL:  envutil.String("DASHBOARD_BASE_URL", "https://hellocounsel-dashboard.vercel.app"),
		Vapi: vapi.Config{
			BaseURL: envutil.String("VAPI_BASE_URL", ""),
			APIKey:  envutil.String("VAPI_API_KEY", ""),
			AgentID: envutil.String("VAPI_AGENT_ID", ""),
		},
		Sentry: sentry.Config{
			BaseURL:      envutil.String("SENTRY_BASE_URL", ""),
			AuthToken:    envutil.String("SENTRY_AUTH_TOKEN", ""),
			Organization: envutil.String("SENTRY_ORG", ""),
			Project:      envutil.String("SENTRY_PROJECT", ""),
		},
		LLM: llm.Config{
			BaseURL: envutil.String("OPENAI_BASE_URL", ""),
			APIKey:  envutil.String("OPENAI_API_KEY", ""),
			Model:   envutil.String("NARRATIVE_MODEL", ""),
		},
	}
}
