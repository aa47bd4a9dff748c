package database

import (
	"fmt"

	briefdomain "github.com/kentsubra71/keystone/internal/brief/domain"
	credentialdomain "github.com/kentsubra71/keystone/internal/credential/domain"
	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	maildomain "github.com/kentsubra71/keystone/internal/mail/domain"
	nudgedomain "github.com/kentsubra71/keystone/internal/nudge/domain"
	sheetdomain "github.com/kentsubra71/keystone/internal/sheet/domain"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service persists.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&itemdomain.ActionItem{},
		&itemdomain.UserAction{},
		&maildomain.ThreadRecord{},
		&sheetdomain.SourceRow{},
		&sheetdomain.OwnerDirectoryEntry{},
		&nudgedomain.Nudge{},
		&nudgedomain.DeviceToken{},
		&credentialdomain.Credential{},
		&briefdomain.Brief{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
