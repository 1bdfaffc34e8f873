package personalization

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1/personalization/{userId}").Subrouter()

	// Recommendation cycle
	api.HandleFunc("/recommendations", handler.Recommend).Methods("POST")
	api.HandleFunc("/context", handler.GetContext).Methods("GET")

	// Feedback hooks
	api.HandleFunc("/feedback/like", handler.Like).Methods("POST")
	api.HandleFunc("/feedback/wear", handler.Wear).Methods("POST")
	api.HandleFunc("/feedback/ignore-session", handler.IgnoreSession).Methods("POST")
	api.HandleFunc("/feedback/shopping-click", handler.ShoppingClick).Methods("POST")

	// Blocklists
	api.HandleFunc("/blocklists", handler.GetBlocklists).Methods("GET")
	api.HandleFunc("/blocklists/hard", handler.AddHardBlock).Methods("POST")
	api.HandleFunc("/blocklists/hard", handler.RemoveHardBlock).Methods("DELETE")
	api.HandleFunc("/blocklists/promote", handler.PromoteSoftBlocks).Methods("POST")

	// Exploration
	api.HandleFunc("/exploration", handler.GetExploration).Methods("GET")
}
