package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nutrilog/internal/auth"
	"nutrilog/internal/config"
	"nutrilog/internal/food"
	"nutrilog/internal/http/handler"
	mw "nutrilog/internal/http/middleware"
	"nutrilog/internal/nutrition"
)

// Deps is everything the routes need.
type Deps struct {
	Config    config.Config
	JWT       *auth.JWT
	Users     auth.Users
	Nutrition *nutrition.Service
	Catalog   *food.Catalog
	USDA      handler.FoodSearcher
	Barcodes  handler.BarcodeLookup
	History   handler.HistoryReader
	Validate  *validator.Validate
	Log       *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)

	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Users: d.Users, JWT: d.JWT, Validate: d.Validate, Log: d.Log}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	nh := &handler.NutritionHandler{Svc: d.Nutrition, Log: d.Log}
	r.Route("/nutrition", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Get("/", nh.Get)
		r.Post("/", nh.Post)
	})

	fh := &handler.FoodsHandler{Catalog: d.Catalog, USDA: d.USDA, Barcodes: d.Barcodes, Log: d.Log}
	r.Route("/foods", func(r chi.Router) {
		r.Get("/search", fh.Search)
		r.Get("/barcode/{code}", fh.Barcode)
	})

	hh := &handler.HistoryHandler{Repo: d.History, Log: d.Log}
	r.Route("/history", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Get("/", hh.List)
		r.Get("/tags", hh.Tags)
	})

	return r
}
