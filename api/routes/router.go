package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftpdv/pdv-backend/api/controllers"
	"github.com/swiftpdv/pdv-backend/api/middleware"
	"github.com/swiftpdv/pdv-backend/internal/auth"
	"github.com/swiftpdv/pdv-backend/internal/customers"
	product "github.com/swiftpdv/pdv-backend/internal/products"
	"github.com/swiftpdv/pdv-backend/internal/sales"
	"github.com/swiftpdv/pdv-backend/internal/users"
	"github.com/swiftpdv/pdv-backend/pkg/auth/session"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	pkgredis "github.com/swiftpdv/pdv-backend/pkg/redis"
)

// Deps collects what the router hands to controllers and middleware. Nil
// stores disable the feature they back.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	RateLimiter middleware.WindowCounter
	Idempotency pkgredis.IdempotencyStore
	Readiness   map[string]controllers.Pinger
	Metrics     http.Handler

	Auth      auth.Service
	Products  product.Service
	Users     users.Service
	Customers customers.Service
	Sales     sales.Service
	Exporter  controllers.SalesExporter
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	cookies := controllers.CookieSettings{JWT: cfg.JWT, Secure: cfg.App.IsProd()}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Readiness))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	staff := []enums.AccessLevel{enums.AccessLevelAdmin, enums.AccessLevelManager}
	adminOnly := middleware.RequireAccess(logg, enums.AccessLevelAdmin)
	managers := middleware.RequireAccess(logg, staff...)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.LoginThrottle(cfg.AuthRateLimit, d.RateLimiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, cookies, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, cookies, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
				r.Get("/status", controllers.AuthStatus())
				r.Get("/me", controllers.AuthMe(d.Auth, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(d.Idempotency, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductList(d.Products, logg))
				r.Get("/low-stock", controllers.ProductLowStock(d.Products, logg))
				r.Get("/barcode/{barcode}", controllers.ProductGetByBarcode(d.Products, logg))
				r.Get("/{id}", controllers.ProductGet(d.Products, logg))
				r.With(managers).Post("/", controllers.ProductCreate(d.Products, logg))
				r.With(managers).Patch("/{id}", controllers.ProductUpdate(d.Products, logg))
				r.With(managers).Delete("/{id}", controllers.ProductDelete(d.Products, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", controllers.UserList(d.Users, logg))
				r.Post("/", controllers.UserCreate(d.Users, logg))
				r.Get("/{id}", controllers.UserGet(d.Users, logg))
				r.Patch("/{id}", controllers.UserUpdate(d.Users, logg))
				r.Delete("/{id}", controllers.UserDelete(d.Users, logg))
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.CustomerList(d.Customers, logg))
				r.Get("/cpf/{cpf}", controllers.CustomerGetByCPF(d.Customers, logg))
				r.Get("/{id}", controllers.CustomerGet(d.Customers, logg))
				r.With(managers).Post("/", controllers.CustomerCreate(d.Customers, logg))
				r.With(managers).Patch("/{id}", controllers.CustomerUpdate(d.Customers, logg))
				r.With(managers).Delete("/{id}", controllers.CustomerDelete(d.Customers, logg))
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", controllers.SaleList(d.Sales, logg))
				r.Post("/", controllers.SaleCreate(d.Sales, logg))
				r.Get("/export.xlsx", controllers.SaleExport(d.Exporter, logg))
				r.Get("/users/{id}", controllers.SaleListByUser(d.Sales, logg))
				r.Get("/customers/{id}", controllers.SaleListByCustomer(d.Sales, logg))
				r.With(managers).Delete("/{id}", controllers.SaleDelete(d.Sales, logg))
			})
		})
	})

	return r
}
