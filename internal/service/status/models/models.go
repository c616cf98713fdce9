package models

// LotStatus занятость одного паркинга
type LotStatus struct {
	LotID               int64    `json:"lotId"`
	Name                string   `json:"name"`
	PriorityOrder       int      `json:"priorityOrder"`
	TotalSlots          int      `json:"totalSlots"`
	OccupiedSlots       int      `json:"occupiedSlots"`
	AvailableSlots      int      `json:"availableSlots"`
	OccupiedSlotNumbers []string `json:"occupiedSlotNumbers"`
}

// OrganizationStatusResponse витрина занятости организации
// Счетчики считаются от состояния бронирований, не от хранимого available_slots
type OrganizationStatusResponse struct {
	OrganizationID int64        `json:"organizationId"`
	Name           string       `json:"name"`
	TotalSlots     int          `json:"totalSlots"`
	OccupiedSlots  int          `json:"occupiedSlots"`
	AvailableSlots int          `json:"availableSlots"`
	Lots           []*LotStatus `json:"lots"`
}
