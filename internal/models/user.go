package models

import "github.com/uptrace/bun"

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	Name         string `bun:"name,notnull" json:"name"`
	Email        string `bun:"email,unique,notnull" json:"email"`
	IsSubscribed bool   `bun:"is_subscribed" json:"is_subscribed"`
}

type Admin struct {
	bun.BaseModel `bun:"table:admins"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Name  string `bun:"name,notnull" json:"name"`
	Email string `bun:"email,unique,notnull" json:"email"`
}
