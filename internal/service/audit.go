package service

import (
	"encoding/json"

	"procureflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// writeAudit records one audit row inside the caller's transaction
func writeAudit(tx *gorm.DB, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	audit := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	return tx.Create(&audit).Error
}
