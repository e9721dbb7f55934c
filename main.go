package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/api/handlers"
	"github.com/pushforge/push-delivery-api/api/scheduler"
	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/notifications"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	var sched *scheduler.Scheduler
	a.Scheduler = func(registry *notifications.Registry, orchestrator *notifications.Orchestrator) {
		sched = scheduler.NewScheduler(registry, orchestrator)
		sched.Start()
	}

	if err := a.Initialize(); err != nil {
		log.Fatal(err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		if sched != nil {
			sched.Stop()
		}
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("push-delivery-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
