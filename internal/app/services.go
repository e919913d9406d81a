package app

import (
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/services"
)

type Services struct {
	Replication services.ReplicationService
	Correlator  services.CorrelatorService
	Aggregator  *services.WeeklyAggregator
	Narrative   services.NarrativeService
	Reports     services.ReportService
}

func wireServices(cfg Config, reposet Repos, clientset Clients, log *logger.Logger) Services {
	replication := services.NewReplicationService(reposet.ReplicaStores, reposet.SourceReports, log)
	correlator := services.NewCorrelatorService(clientset.Calls, clientset.ErrorTracker, log)
	aggregator := services.NewWeeklyAggregator(log)
	narrative := services.NewNarrativeService(reposet.ReplicaStores, reposet.Prompts, clientset.Narrative, cfg.DashboardBaseURL, log)
	reports := services.NewReportService(reposet.ReplicaStores, replication, correlator, aggregator, log)

	return Services{
		Replication: replication,
		Correlator:  correlator,
		Aggregator:  aggregator,
		Narrative:   narrative,
		Reports:     reports,
	}
}
