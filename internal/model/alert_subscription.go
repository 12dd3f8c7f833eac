package model

import "time"

// AlertSubscription holds a browser push subscription for maintenance alerts.
type AlertSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Machines []*Machine `gorm:"many2many:alert_subscription_machines;"`
}
