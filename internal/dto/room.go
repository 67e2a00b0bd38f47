package dto

// UpdateRoomStatusRequest sets a room's operational status
type UpdateRoomStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
