package domain

import "time"

type Category struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Slug      string    `json:"slug" gorm:"size:120;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

type Dish struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	RestaurantID int64     `json:"restaurant_id" gorm:"not null;index"`
	Name         string    `json:"name" gorm:"size:200;not null"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Dish) TableName() string { return "dishes" }
