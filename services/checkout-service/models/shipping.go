package models

import "time"

// Shipping simulation statuses and locations.
const (
	ShippingStatusPreparing = "Preparing order"
	ShippingOriginLocation  = "Express Warehouse, America"
	TrackingCodePrefix      = "EXPRESS-SHIP-"
)

// TransitLocations are the checkpoints a status update is stamped with.
var TransitLocations = []string{
	"Departed from sorting hub",
	"In transit",
	"Arrived at local delivery station",
	"Out for delivery to your address",
}

// TrackingEntry is one point in an order's shipping timeline.
type TrackingEntry struct {
	Status    string    `json:"status" dynamodbav:"status"`
	Location  string    `json:"location" dynamodbav:"location"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// UpdateShippingStatusRequest is the body of POST /orders/:id/shipping/status.
type UpdateShippingStatusRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
}

// ShippingStartedResponse is returned when a shipment is started.
type ShippingStartedResponse struct {
	Message      string `json:"message"`
	TrackingCode string `json:"tracking_code"`
}
