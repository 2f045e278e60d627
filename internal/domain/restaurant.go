package domain

import "time"

type Restaurant struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	OwnerID     int64     `json:"owner_id" gorm:"not null;index"`
	CategoryID  *int64    `json:"category_id,omitempty" gorm:"index"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	City        string    `json:"city" gorm:"size:100;index"`
	Approved    bool      `json:"approved" gorm:"not null;default:false;index"`
	Rating      float64   `json:"rating" gorm:"not null;default:0"`
	ReviewCount int       `json:"review_count" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (Restaurant) TableName() string { return "restaurants" }
