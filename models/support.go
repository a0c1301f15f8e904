package models

import "time"

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketSolved TicketStatus = "solved"
)

type IssueType string

const (
	IssueWallet IssueType = "Wallet Issue"
	IssueMatch  IssueType = "Match Issue"
	IssueResult IssueType = "Result Issue"
	IssueAppBug IssueType = "App Bug"
	IssueOther  IssueType = "Other"
)

func (i IssueType) Valid() bool {
	switch i {
	case IssueWallet, IssueMatch, IssueResult, IssueAppBug, IssueOther:
		return true
	}
	return false
}

type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

type SupportTicket struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	UserID         string       `json:"user_id" gorm:"not null;index"`
	UserName       string       `json:"user_name"`
	UserEmail      string       `json:"user_email"`
	IssueType      IssueType    `json:"issue_type" gorm:"type:varchar(32);not null"`
	Description    string       `json:"description" gorm:"type:text"`
	Status         TicketStatus `json:"status" gorm:"type:varchar(16);not null;default:'open'"`
	TournamentID   string       `json:"tournament_id,omitempty"`
	TournamentName string       `json:"tournament_name,omitempty"`
	CreatedAt      time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"index"`

	Messages []SupportMessage `json:"messages,omitempty" gorm:"foreignKey:TicketID"`
}

type SupportMessage struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	TicketID   string     `json:"ticket_id" gorm:"not null;index"`
	SenderID   string     `json:"sender_id" gorm:"not null"`
	SenderType SenderType `json:"sender_type" gorm:"type:varchar(8);not null"`
	Message    string     `json:"message" gorm:"type:text;not null"`
	Timestamp  time.Time  `json:"timestamp" gorm:"not null"`
}
