package utils

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/akolanti/DocQA/cmd/api/docs"
)

var (
	once   sync.Once
	router *chi.Mux
)

type RouterClient struct {
	Router *chi.Mux
}

func GetNewUUID() string {
	return uuid.New().String()
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// GetRouter returns the shared router with the operational routes already mounted:
// /healthz, /metrics and the swagger ui. RealIP runs first so per-ip rate limits see
// the client address behind a proxy.
func GetRouter() RouterClient {
	once.Do(func() {
		router = chi.NewRouter()
		router.Use(chimw.RealIP, chimw.Recoverer)
		router.Use(chimw.Heartbeat("/healthz"))
		router.Handle("/metrics", promhttp.Handler())
		InitSwagger(router)
	})
	return RouterClient{Router: router}
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
