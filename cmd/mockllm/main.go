// File: cmd/mockllm/main.go
// Dev stand-in for the Ollama /api/generate endpoint with a canned answer.
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
	port := flag.Int("port", 11434, "listen port")
	label := flag.String("label", "offer", "label to answer with")
	confidence := flag.Float64("confidence", 0.9, "confidence to answer with")
	flag.Parse()

	answer := fmt.Sprintf(`{"label":%q,"confidence":%.2f,"reason":"mock answer"}`, *label, *confidence)

	r := chi.NewRouter()
	r.Post("/api/generate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		log.Printf("generate model=%s prompt_bytes=%d", body.Model, len(body.Prompt))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    body.Model,
			"response": answer,
			"done":     true,
		})
	})

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	log.Printf("Mock LLM running on http://%s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
