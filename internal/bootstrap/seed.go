package bootstrap

import (
	"strings"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/repository/memory"
)

// SeedDemoInventory gives a memory store two room types to book against and the
// add-on catalogue. Room 104 has no lock and is never allocated automatically.
func SeedDemoInventory(store *memory.Store) {
	now := time.Now().UTC()
	types := []domain.RoomType{
		{ID: "standard", Name: "Standard Double", Description: "Queen bed, city view", BasePriceCents: 9000, MaxOccupancy: 2},
		{ID: "family", Name: "Family Suite", Description: "Two bedrooms, kitchenette", BasePriceCents: 16000, MaxOccupancy: 4},
	}
	for _, t := range types {
		t.IsActive = true
		t.CreatedAt, t.UpdatedAt = now, now
		store.AddRoomType(t)
	}

	rooms := []struct{ id, number, typeID, lockID string }{
		{"room-101", "101", "standard", "demo-lock-101"},
		{"room-102", "102", "standard", "demo-lock-102"},
		{"room-103", "103", "standard", "demo-lock-103"},
		{"room-104", "104", "standard", ""},
		{"room-201", "201", "family", "demo-lock-201"},
		{"room-202", "202", "family", "demo-lock-202"},
	}
	for _, r := range rooms {
		room := domain.Room{ID: r.id, RoomNumber: r.number, RoomTypeID: r.typeID, IsActive: true, CreatedAt: now, UpdatedAt: now}
		if r.lockID != "" {
			lockID := r.lockID
			room.LockID = &lockID
		}
		store.AddRoom(room)
	}

	services := []domain.AdditionalService{
		{Code: "AIRPORT_TRANSFER", Name: "Airport Transfer", Description: "Transfer from or to the airport", Unit: "trip", PriceCents: 5000},
		{Code: "BREAKFAST", Name: "Daily Breakfast", Description: "Continental breakfast buffet", Unit: "day", PriceCents: 1200},
		{Code: "EARLY_CHECKIN", Name: "Early Check-in", Description: "Room ready from 10:00", Unit: "booking", PriceCents: 2000},
		{Code: "LATE_CHECKOUT", Name: "Late Check-out", Description: "Stay until 18:00", Unit: "booking", PriceCents: 2500},
		{Code: "PARKING", Name: "Parking Space", Description: "Secure parking spot", Unit: "day", PriceCents: 1500},
	}
	for _, svc := range services {
		svc.ID = "svc-" + strings.ToLower(svc.Code)
		svc.IsActive = true
		svc.CreatedAt = now
		store.AddService(svc)
	}
}
