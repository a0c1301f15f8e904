// models/game.go
package models

import "time"

// Game is a title tournaments are played in.
type Game struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	ImageURL  string    `json:"image_url"`
	Hint      string    `json:"hint"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	TournamentCount int64 `json:"tournament_count" gorm:"-"`
}

// CarouselSlide is a dashboard banner.
type CarouselSlide struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Hint        string    `json:"hint"`
	SortOrder   int       `json:"sort_order" gorm:"column:sort_order;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
