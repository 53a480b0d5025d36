package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ttkdelivery/ttk-backend/api/controllers"
	"github.com/ttkdelivery/ttk-backend/api/middleware"
	"github.com/ttkdelivery/ttk-backend/internal/addresses"
	"github.com/ttkdelivery/ttk-backend/internal/cart"
	"github.com/ttkdelivery/ttk-backend/internal/catalog"
	"github.com/ttkdelivery/ttk-backend/internal/drivers"
	"github.com/ttkdelivery/ttk-backend/internal/notifications"
	"github.com/ttkdelivery/ttk-backend/internal/orders"
	"github.com/ttkdelivery/ttk-backend/internal/regions"
	"github.com/ttkdelivery/ttk-backend/pkg/config"
	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Regions       regions.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Orders        orders.Service
	Notifications notifications.Service
	Addresses     addresses.Service
	Drivers       drivers.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	// Public storefront surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/regions/resolve", controllers.RegionResolve(svcs.Regions, logg))
		r.Get("/regions", controllers.RegionList(svcs.Regions, logg))
		r.Get("/products", controllers.ProductList(svcs.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(svcs.Catalog, logg))
		r.Get("/combos", controllers.ComboList(svcs.Catalog, logg))
		r.Get("/combos/{comboId}", controllers.ComboDetail(svcs.Catalog, logg))
		r.Get("/fire-sales", controllers.FireSaleList(svcs.Catalog, logg))

		// Authenticated customer surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
				r.Put("/region", controllers.CartSetRegion(svcs.Cart, logg))
				r.Post("/lines", controllers.CartAddLine(svcs.Cart, logg))
				r.Patch("/lines/{lineId}", controllers.CartUpdateLine(svcs.Cart, logg))
				r.Delete("/lines/{lineId}", controllers.CartRemoveLine(svcs.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderSubmit(svcs.Orders, logg))
				r.Get("/", controllers.OrderList(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
				r.Post("/{orderId}/transition", controllers.OrderTransition(svcs.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/preferences", controllers.NotificationPreferences(svcs.Notifications, logg))
				r.Put("/preferences", controllers.NotificationPreferencesUpdate(svcs.Notifications, logg))
				r.Post("/mute", controllers.NotificationMute(svcs.Notifications, logg))
				r.Post("/unmute", controllers.NotificationUnmute(svcs.Notifications, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(svcs.Addresses, logg))
				r.Post("/", controllers.AddressSave(svcs.Addresses, logg))
				r.Post("/{addressId}/default", controllers.AddressSetDefault(svcs.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(svcs.Addresses, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireDriver(logg))
				r.Post("/drivers/location", controllers.DriverLocationUpdate(svcs.Drivers, cfg.Delivery.DriverPingInterval, logg))
			})
		})
	})

	// Admin surface.
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/regions", func(r chi.Router) {
			r.Post("/", controllers.AdminRegionCreate(svcs.Regions, logg))
			r.Patch("/{regionId}", controllers.AdminRegionUpdate(svcs.Regions, logg))
			r.Post("/{regionId}/active", controllers.AdminRegionSetActive(svcs.Regions, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(svcs.Catalog, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(svcs.Catalog, logg))
			r.Post("/{productId}/stock", controllers.AdminProductSetStock(svcs.Catalog, logg))
		})

		r.Route("/combos", func(r chi.Router) {
			r.Post("/", controllers.AdminComboCreate(svcs.Catalog, logg))
			r.Post("/{comboId}/active", controllers.AdminComboSetActive(svcs.Catalog, logg))
		})

		r.Route("/fire-sales", func(r chi.Router) {
			r.Post("/", controllers.AdminFireSaleCreate(svcs.Catalog, logg))
			r.Post("/{fireSaleId}/end", controllers.AdminFireSaleEnd(svcs.Catalog, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/transition", controllers.OrderTransition(svcs.Orders, logg))
			r.Post("/{orderId}/assign-driver", controllers.AdminOrderAssignDriver(svcs.Orders, logg))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Get("/", controllers.AdminDriverList(svcs.Drivers, logg))
			r.Get("/{driverId}", controllers.AdminDriverDetail(svcs.Drivers, logg))
		})
	})

	return r
}
