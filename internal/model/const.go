package model

// ==== Roles ====
const (
	RoleAdmin    = "ADMIN"
	RoleDelivery = "DELIVERY"
)

// ==== Rider Status ====
const (
	RiderStatusAvailable = "AVAILABLE"
	RiderStatusBusy      = "BUSY"
	RiderStatusOffline   = "OFFLINE"
)

// ==== Service Status ====
const (
	ServiceStatusPending    = "PENDING"
	ServiceStatusAssigned   = "ASSIGNED"
	ServiceStatusInProgress = "IN_PROGRESS"
	ServiceStatusCompleted  = "COMPLETED"
)

// ==== Payment Type ====
const (
	PaymentCash   = "CASH"
	PaymentCredit = "CREDIT"
)

// ==== Dispatch Event Type ====
const (
	EventServiceCreated     = "SERVICE_CREATED"
	EventServiceAssigned    = "SERVICE_ASSIGNED"
	EventServiceStarted     = "SERVICE_STARTED"
	EventServiceCompleted   = "SERVICE_COMPLETED"
	EventServiceDeleted     = "SERVICE_DELETED"
	EventRiderStatusChanged = "RIDER_STATUS_CHANGED"
	EventLocationUpdated    = "LOCATION_UPDATED"
)
