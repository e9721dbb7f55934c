package handlers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pushforge/push-delivery-api/api"
	"github.com/pushforge/push-delivery-api/config"
	"github.com/pushforge/push-delivery-api/databases"
	"github.com/pushforge/push-delivery-api/fcm"
	"github.com/pushforge/push-delivery-api/notifications"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router       *mux.Router
	Config       config.Config
	Scheduler    SchedulerHook
	dbHelper     databases.DatabaseHelper
	registry     *notifications.Registry
	orchestrator *notifications.Orchestrator
}

// SchedulerHook lets main hand the background scheduler the wired engine
// pieces once the database is up
type SchedulerHook func(registry *notifications.Registry, orchestrator *notifications.Orchestrator)

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	sender := fcm.NewClient(a.Config.FCMSendURL, a.Config.FCMServerKey)

	endpointDB := databases.NewEndpointDatabase(a.dbHelper)
	notificationDB := databases.NewNotificationDatabase(a.dbHelper)
	broadcastDB := databases.NewBroadcastDatabase(a.dbHelper)
	preferencesDB := databases.NewPreferencesDatabase(a.dbHelper)

	registry := &notifications.Registry{DB: endpointDB, Sender: sender}
	filter := &notifications.Filter{DB: preferencesDB}
	dispatcher := &notifications.Dispatcher{Sender: sender, Endpoints: endpointDB}
	recorder := &notifications.Recorder{DB: notificationDB}

	service := &notifications.Service{
		Registry:   registry,
		Filter:     filter,
		Dispatcher: dispatcher,
		Recorder:   recorder,
		DB:         notificationDB,
	}
	orchestrator := &notifications.Orchestrator{
		DB:                 broadcastDB,
		Registry:           registry,
		Dispatcher:         dispatcher,
		Recorder:           recorder,
		RecordPerRecipient: a.Config.BroadcastHistory,
	}
	a.registry = registry
	a.orchestrator = orchestrator

	e := Endpoint{Registry: registry}
	n := Notification{Service: service}
	b := Broadcast{Orchestrator: orchestrator}
	p := Preferences{DB: preferencesDB}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(api.RequestTimeout))

	apiCreate.Handle("/endpoints", http.HandlerFunc(e.RegisterEndpointHandler)).Methods("POST")
	apiCreate.Handle("/endpoints/cleanup", http.HandlerFunc(e.CleanupEndpointsHandler)).Methods("POST")
	apiCreate.Handle("/endpoints/validate", http.HandlerFunc(e.ValidateTokensHandler)).Methods("POST")
	apiCreate.Handle("/endpoints/{endpoint_id}", http.HandlerFunc(e.DeactivateEndpointHandler)).Methods("DELETE")
	apiCreate.Handle("/users/{user_id}/endpoints", http.HandlerFunc(e.UserEndpointsHandler)).Methods("GET")

	apiCreate.Handle("/notifications/send", http.HandlerFunc(n.SendHandler)).Methods("POST")
	apiCreate.Handle("/notifications/send-multiple", http.HandlerFunc(n.SendMultipleHandler)).Methods("POST")
	apiCreate.Handle("/notifications/send-template", http.HandlerFunc(n.SendTemplateHandler)).Methods("POST")
	apiCreate.Handle("/notifications/stats", http.HandlerFunc(n.StatsHandler)).Methods("GET")
	apiCreate.Handle("/notifications/{notification_id}/retry", http.HandlerFunc(n.RetryHandler)).Methods("POST")
	apiCreate.Handle("/notifications", http.HandlerFunc(n.HistoryHandler)).Methods("GET")

	apiCreate.Handle("/broadcasts", http.HandlerFunc(b.CreateBroadcastHandler)).Methods("POST")
	apiCreate.Handle("/broadcasts", http.HandlerFunc(b.BroadcastsHandler)).Methods("GET")
	apiCreate.Handle("/broadcasts/{broadcast_id}", http.HandlerFunc(b.BroadcastByIDHandler)).Methods("GET")

	apiCreate.Handle("/users/{user_id}/preferences", http.HandlerFunc(p.GetPreferencesHandler)).Methods("GET")
	apiCreate.Handle("/users/{user_id}/preferences", http.HandlerFunc(p.UpdatePreferencesHandler)).Methods("PUT")
	apiCreate.Handle("/users/{user_id}/preferences", http.HandlerFunc(p.ResetPreferencesHandler)).Methods("DELETE")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("push-delivery-api has connected to the database")

	// initialize api router
	a.initializeRoutes()

	if a.Scheduler != nil {
		a.Scheduler(a.registry, a.orchestrator)
	}
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"alive": true}`)
}
