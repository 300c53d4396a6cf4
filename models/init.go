package models

import "gorm.io/gorm"

// Migrate runs the schema migration for every model in the application.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Subscriber{},
		&Campaign{},
		&Category{},
		&Post{},
		&InboxReply{},
	)
}
