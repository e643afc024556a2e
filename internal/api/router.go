// Package api assembles the HTTP surface of the back office.
package api

import (
	"net/http"

	"github.com/dvloznov/fx-backoffice/internal/api/handlers"
	"github.com/dvloznov/fx-backoffice/internal/api/middleware"
	"github.com/dvloznov/fx-backoffice/internal/directory"
	"github.com/dvloznov/fx-backoffice/internal/editor"
	"github.com/dvloznov/fx-backoffice/internal/jobs"
	"github.com/dvloznov/fx-backoffice/internal/reportexport"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Deps are the services the router dispatches to. Publisher, Checker and
// Jobs may be nil, which disables the export endpoints.
type Deps struct {
	Customers      store.CustomerStore
	Transactions   store.TransactionStore
	Currencies     store.CurrencyStore
	Directory      *directory.Directory
	Editor         *editor.Editor
	Reports        reportexport.ReportSource
	Checker        handlers.ExportChecker
	Publisher      jobs.Publisher
	Jobs           jobs.Store
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter builds the chi router with middleware applied.
func NewRouter(d Deps) http.Handler {
	customers := handlers.NewCustomersHandler(d.Customers, d.Directory, d.Editor, d.Log)
	reports := handlers.NewReportsHandler(d.Reports, d.Checker, d.Publisher, d.Log)
	transactions := handlers.NewTransactionsHandler(d.Transactions, d.Log)
	currencies := handlers.NewCurrenciesHandler(d.Currencies, d.Log)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS(origins))

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		// Reads
		r.Group(func(r chi.Router) {
			r.Get("/currencies", currencies.ListCurrencies)
			r.Get("/customers", customers.ListCustomers)
			r.Get("/customers/{id}", customers.GetCustomer)
			r.Get("/customers/{id}/backups", customers.ListBackups)
			r.Get("/customers/{id}/report", reports.CustomerReport)
			r.Get("/reports/company", reports.CompanyReport)

			if d.Jobs != nil {
				jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Log)
				r.Get("/jobs", jobsHandler.ListJobs)
				r.Get("/jobs/{id}", jobsHandler.GetJob)
			}
		})

		// Mutations require an actor
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Put("/customers/{id}", customers.UpdateCustomer)
			r.Post("/customers/{id}/backups/{backupID}/restore", customers.RestoreBackup)
			r.Delete("/transactions/{id}", transactions.DeleteTransaction)
			r.Post("/reports/exports", reports.EnqueueExport)
		})
	})

	return r
}
