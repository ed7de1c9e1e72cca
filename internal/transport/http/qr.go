package http

import (
	"net/http"

	"live-trivia-service/internal/app"

	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// QRHandler serves a PNG QR code encoding the join link for a room, so hosts
// can put it on screen for participants to scan.
type QRHandler struct {
	service   *app.RoomService
	publicURL string
}

func NewQRHandler(service *app.RoomService, publicURL string) *QRHandler {
	return &QRHandler{service: service, publicURL: publicURL}
}

func (h *QRHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if !h.service.RoomExists(code) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	png, err := qrcode.Encode(base+"/join?code="+code, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
