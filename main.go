package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"schoolRecords/application"
	"schoolRecords/config"
	"schoolRecords/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "create the schema, seed the roles and exit")
	studentsFile := flag.String("import-students", "", "import a students CSV into -group and exit")
	groupID := flag.Int64("group", 0, "group that imported students join")
	teachersFile := flag.String("import-teachers", "", "import a teachers CSV and exit")
	flag.Parse()

	logr := logger.GetInstance()

	cfg, err := config.Load()
	if err != nil {
		logr.Fatalf("config load failed: %v", err)
	}

	if err := logr.Initialize(cfg.LogDir, cfg.LogLevel); err != nil {
		logr.Fatalf("logger initialization failed: %v", err)
	}

	logr.Infof("Application starting. LogLevel=%s", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := application.NewApplication()
	if err := app.Configure(ctx, cfg, logr); err != nil {
		logr.Fatalf("configure failed: %v", err)
	}
	defer app.Close()

	switch {
	case *migrateOnly:
		logr.Info("Migration finished")
		return
	case *studentsFile != "":
		report, err := app.Services.ImportStudents(ctx, *studentsFile, *groupID)
		if err != nil {
			app.Close()
			logr.Fatalf("students import failed: %v", err)
		}
		logr.Infof("Students imported: %d created, %d updated", report.Created, report.Updated)
		return
	case *teachersFile != "":
		report, err := app.Services.ImportTeachers(ctx, *teachersFile)
		if err != nil {
			app.Close()
			logr.Fatalf("teachers import failed: %v", err)
		}
		logr.Infof("Teachers imported: %d created, %d updated", report.Created, report.Updated)
		return
	}

	app.Run(ctx)
	<-ctx.Done()

	logr.Info("Application stopped")
}
