package models

import (
	"gorm.io/gorm"
)

const (
	HeadHashKey     = "head_hash"
	OrganizationKey = "organization"
)

type Meta struct {
	gorm.Model
	Key string `gorm:"unique"`
	Val string
}
