package models

import (
	"log"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{},
		&Customer{},
		&Invoice{}, &InvoiceItem{}, &InvoiceNumberSequence{},
		&Payment{}, &Reminder{},
		&Document{},
		&OutboxMessage{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
