package handlers

import "net/http"

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	OnlineUsers   int   `json:"online_users"`
	ActiveRooms   int   `json:"active_rooms"`
	TotalProfiles int64 `json:"total_profiles"`
}

// Stats returns service statistics for the landing page.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	totalProfiles, err := h.profiles.CountProfiles(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count profiles")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		OnlineUsers:   h.registry.CountOnline(),
		ActiveRooms:   h.rooms.Len(),
		TotalProfiles: totalProfiles,
	})
}
