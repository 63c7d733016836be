package respond

import (
	"encoding/json"
	"log"
	"net/http"
)

// Fields is the payload merged into a success envelope.
type Fields map[string]any

// JSON writes {"success": true, ...fields}.
func JSON(w http.ResponseWriter, status int, fields Fields) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	write(w, status, body)
}

// Error writes {"success": false, "error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, map[string]any{"success": false, "error": message})
}

func write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("respond: encode payload failed: %v", err)
	}
}
