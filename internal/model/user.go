package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID        int64     `json:"id"         db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `json:"name"       db:"name"       gorm:"column:name;not null"`
	Email     string    `json:"email"      db:"email"      gorm:"column:email"`
	Role      Role      `json:"role"       db:"role"       gorm:"column:role;not null"`
	PinHash   *string   `json:"-"          db:"pin_hash"   gorm:"column:pin_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) HasPin() bool {
	return u.PinHash != nil && *u.PinHash != ""
}
