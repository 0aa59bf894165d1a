package app

import (
	"log"
	"net/http"
	"time"
	"vkozyrev/photocaption/internal/handler"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	router *mux.Router
}

func NewServer(photoHandler *handler.PhotoHandler) *Server {
	router := mux.NewRouter()

	// Routes
	photoHandler.RegisterRoutes(router)
	router.HandleFunc("/ping", handler.Ping).Methods("GET", "OPTIONS")

	swaggerHandler := httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)

	router.PathPrefix("/swagger/").Handler(swaggerHandler)

	router.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	return &Server{router: router}
}

func corsMiddleware() func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
	)
}

func (s *Server) Run(port string) {
	srv := &http.Server{
		Handler:      corsMiddleware()(s.router),
		Addr:         ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(srv.ListenAndServe())
}
