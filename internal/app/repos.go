package app

import (
	"gorm.io/gorm"

	"github.com/hellocounsel/reports-backend/internal/db"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/repos"
)

type Repos struct {
	ReplicaStores *repos.ReplicaStores
	SourceReports repos.SourceReportRepo
	Prompts       repos.PromptRepo
}

func wireRepos(registry *db.ReplicaRegistry, sourceDB *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		ReplicaStores: repos.NewReplicaStores(registry, log),
		SourceReports: repos.NewSourceReportRepo(sourceDB, log),
		Prompts:       repos.NewPromptRepo(sourceDB, log),
	}
}
