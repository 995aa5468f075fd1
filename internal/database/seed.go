package database

import (
	"log"
	"time"

	"procureflow/internal/model"
	"procureflow/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed inserts the built-in demo users and purchase requests when the
// corresponding tables are empty. It runs once at startup; stores never seed
// lazily on read.
func Seed(db *gorm.DB) error {
	if err := seedUsers(db); err != nil {
		return err
	}
	return seedRequests(db)
}

func mustHash(plaintext string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}
	return string(hash)
}

func seedUsers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	users := []model.User{
		{
			FirstName:         "System",
			LastName:          "Admin",
			JobTitle:          "IT Director",
			Role:              model.RoleAdmin,
			Username:          "admin",
			Password:          mustHash("admin123"), // non-standard for admin
			IsDefaultPassword: false,
		},
		{
			FirstName:         "Morgan",
			LastName:          "Elliot",
			JobTitle:          "MFG ENG",
			Role:              model.RoleEmployee,
			Username:          "morgan",
			Password:          mustHash(service.GenerateDefaultPassword("Morgan", "Elliot")),
			IsDefaultPassword: true,
		},
		{
			FirstName:         "Mike",
			LastName:          "Greere",
			JobTitle:          "ESS Lead",
			Role:              model.RoleESS,
			Username:          "mike",
			Password:          mustHash(service.GenerateDefaultPassword("Mike", "Greere")),
			IsDefaultPassword: true,
		},
		{
			FirstName:         "Gerald",
			LastName:          "Jones",
			JobTitle:          "Facility Mgr",
			Role:              model.RoleEmployee,
			Username:          "gerald",
			Password:          mustHash(service.GenerateDefaultPassword("Gerald", "Jones")),
			IsDefaultPassword: true,
		},
	}

	if err := db.Create(&users).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d users", len(users))
	return nil
}

func seedRequests(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.PurchaseRequest{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	day := 24 * time.Hour

	requests := []model.PurchaseRequest{
		{
			ID:            "REQ-1001",
			ProjectCode:   "Project Alpha-X",
			RequesterName: "Morgan Elliot - MFG ENG",
			CreatedAt:     now.Add(-5 * day),
			UpdatedAt:     now.Add(-2 * day),
			NeededByDate:  now.Add(10 * day),
			Priority:      model.PriorityHigh,
			Status:        model.StatusOrdered,
			TotalAmount:   decimal.NewFromFloat(167.45),
			Notes:         "Urgent for prototype phase 1",
			Items: []model.LineItem{
				{
					Name:          "High Performance Stepper Motor",
					Description:   "NEMA 17, 1.8deg, 2A",
					Vendor:        "DigiKey",
					MfgPartNumber: "123-STEP-MOTOR",
					URL:           "https://digikey.com",
					Quantity:      5,
					UnitType:      "Each",
					PricePerUnit:  decimal.NewFromFloat(24.99),
					Position:      0,
				},
				{
					Name:          "Motor Driver",
					Description:   "SilentStepStick",
					Vendor:        "Pololu",
					MfgPartNumber: "DRV8825",
					URL:           "https://pololu.com",
					Quantity:      5,
					UnitType:      "Each",
					PricePerUnit:  decimal.NewFromFloat(8.50),
					Position:      1,
				},
			},
			Timeline: []model.ApprovalEvent{
				{
					Role:      model.RoleEmployee,
					ActorName: "Morgan Elliot - MFG ENG",
					Action:    model.EventSubmitted,
					Timestamp: now.Add(-5 * day),
				},
				{
					Role:      model.RoleESS,
					ActorName: "Mike Greere - ESS Lead",
					Action:    model.EventOrdered,
					Timestamp: now.Add(-2 * day),
					Note:      "PO #998877 created",
				},
			},
		},
		{
			ID:            "REQ-1002",
			ProjectCode:   "Facility Maint",
			RequesterName: "Gerald Jones - Facility Mgr",
			CreatedAt:     now.Add(-1 * time.Hour),
			UpdatedAt:     now.Add(-1 * time.Hour),
			NeededByDate:  now.Add(20 * day),
			Priority:      model.PriorityNormal,
			Status:        model.StatusNeedsInfo,
			TotalAmount:   decimal.NewFromFloat(90.00),
			Items: []model.LineItem{
				{
					Name:          "Safety Glasses",
					Description:   "Anti-fog, clear lens",
					Vendor:        "Uline",
					MfgPartNumber: "S-12345",
					URL:           "https://uline.com",
					Quantity:      2,
					UnitType:      "Box of 10",
					PricePerUnit:  decimal.NewFromFloat(45.00),
					Position:      0,
				},
			},
			Messages: []model.Message{
				{
					Sender:     model.RoleESS,
					SenderName: "Mike Greere - ESS Lead",
					Text:       "Gerald, do you need the tinted ones or clear?",
					Timestamp:  now.Add(-30 * time.Minute),
				},
			},
			Timeline: []model.ApprovalEvent{
				{
					Role:      model.RoleEmployee,
					ActorName: "Gerald Jones - Facility Mgr",
					Action:    model.EventSubmitted,
					Timestamp: now.Add(-1 * time.Hour),
				},
				{
					Role:      model.RoleESS,
					ActorName: "Mike Greere - ESS Lead",
					Action:    model.EventInfoRequested,
					Timestamp: now.Add(-30 * time.Minute),
				},
			},
		},
		{
			ID:            "REQ-1003",
			ProjectCode:   "Project Beta",
			RequesterName: "Morgan Elliot - MFG ENG",
			CreatedAt:     now.Add(-2 * time.Hour),
			UpdatedAt:     now.Add(-2 * time.Hour),
			NeededByDate:  now.Add(5 * day),
			Priority:      model.PriorityLow,
			Status:        model.StatusPending,
			TotalAmount:   decimal.NewFromFloat(25.00),
			Notes:         "For internal testing",
			Items: []model.LineItem{
				{
					Name:          "Dev Board",
					Description:   "ESP32 Development Board",
					Vendor:        "Amazon",
					MfgPartNumber: "ESP32-DEVKIT",
					URL:           "https://amazon.com",
					Quantity:      2,
					UnitType:      "Each",
					PricePerUnit:  decimal.NewFromFloat(12.50),
					Position:      0,
				},
			},
			Timeline: []model.ApprovalEvent{
				{
					Role:      model.RoleEmployee,
					ActorName: "Morgan Elliot - MFG ENG",
					Action:    model.EventSubmitted,
					Timestamp: now.Add(-2 * time.Hour),
				},
			},
		},
	}

	if err := db.Create(&requests).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d purchase requests", len(requests))
	return nil
}
