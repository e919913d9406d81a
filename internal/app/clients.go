package app

import (
	"github.com/hellocounsel/reports-backend/internal/clients/llm"
	"github.com/hellocounsel/reports-backend/internal/clients/sentry"
	"github.com/hellocounsel/reports-backend/internal/clients/vapi"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
)

type Clients struct {
	Calls        vapi.Client
	ErrorTracker sentry.Client
	Narrative    llm.Client
}

func wireClients(cfg Config, log *logger.Logger) (Clients, error) {
	calls, err := vapi.NewClient(cfg.Vapi, log)
	if err != nil {
		return Clients{}, err
	}
	errorTracker, err := sentry.NewClient(cfg.Sentry, log)
	if err != nil {
		return Clients{}, err
	}
	narrative, err := llm.NewClient(cfg.LLM, log)
	if err != nil {
		return Clients{}, err
	}
	return Clients{
		Calls:        calls,
		ErrorTracker: errorTracker,
		Narrative:    narrative,
	}, nil
}
