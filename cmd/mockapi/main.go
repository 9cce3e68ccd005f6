// File: cmd/mockapi/main.go
// Dev stand-in for the Job Copilot inbox API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func main() {
	port := flag.Int("port", 3000, "listen port")
	empty := flag.Bool("empty", false, "serve an empty batch instead of sample messages")
	flag.Parse()

	sample := []map[string]any{
		{
			"id":             123,
			"subject":        "Test message",
			"snippet":        "This is a test",
			"classification": "other",
		},
	}

	r := chi.NewRouter()
	r.Get("/api/v1/messages", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if *empty {
			_ = json.NewEncoder(w).Encode([]any{})
			return
		}
		_ = json.NewEncoder(w).Encode(sample)
	})
	r.Patch("/api/v1/messages/{id}/claim", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"triage_in_progress": true})
	})
	r.Patch("/api/v1/messages/{id}", func(w http.ResponseWriter, req *http.Request) {
		var received map[string]any
		_ = json.NewDecoder(req.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"received": received})
	})

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	log.Printf("Mock inbox API running on http://%s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
