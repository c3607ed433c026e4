package boot

import (
	"hbs/src/common"
	"hbs/src/config"
	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/store"
	"log"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Payment{},
		&models.Booking{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitStores picks the record store backend from DATABASE_DRIVER.
func InitStores() store.Stores {
	if config.DatabaseDriver() == "memory" {
		log.Println("Using in-memory record stores")
		return store.NewMemory().Stores()
	}
	return store.NewGorm(InitDb())
}

func InitScheduler(stores store.Stores) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	cfg := config.LoadReconcile()
	if _, err := lib.CreateCronJob("reconcile-stale-payments", common.NewReconcileTask(stores, cfg), cfg.Interval); err != nil {
		log.Printf("Error creating reconcile job: %s\n", err.Error())
		return
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}
