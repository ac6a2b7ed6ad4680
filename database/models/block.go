package models

import (
	"gorm.io/gorm"
)

type Block struct {
	gorm.Model
	Organization string `gorm:"index"`
	Payload      []byte
	PrevHash     string
	Timestamp    int64
	Hash         string `gorm:"unique"`
}
