package models

import (
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	UserID   string `bun:"user_id,pk" json:"user_id"`
	FullName string `bun:"full_name,nullzero" json:"full_name,omitempty"`
	Email    string `bun:"email,nullzero" json:"email,omitempty"`
	Role     Role   `bun:"role,notnull,default:'student'" json:"role"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
