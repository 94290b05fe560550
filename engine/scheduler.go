package engine

import (
	"fmt"
	"log/slog"

	database "github.com/drummonds/pdftoolbox/database"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts all the cron jobs (currently just one)
func (serverHandler *ServerHandler) InitializeSchedules(db database.Repository) {
	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		fmt.Println("Error reading db when initializing")
	}

	// Run the retention sweep immediately at startup in a goroutine
	Logger.Info("Running retention sweep at startup")
	go serverHandler.sweepJobFunc(db)

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() { serverHandler.sweepJobFunc(db) })
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverConfig.SweepInterval), sweepJob)
	Logger.Info("Adding retention sweep scheduler", "interval_minutes", serverConfig.SweepInterval)
	c.Start()
}
