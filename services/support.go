package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"
	"tournament-wallet/notify"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupportService handles user tickets and the admin conversation on them.
type SupportService struct {
	Store  *database.Client
	Notify notify.Publisher
	Log    slog.Logger
}

func NewSupportService(store *database.Client, pub notify.Publisher, log slog.Logger) *SupportService {
	return &SupportService{Store: store, Notify: pub, Log: log}
}

type TicketInput struct {
	IssueType      models.IssueType
	Description    string
	TournamentID   string
	TournamentName string
}

// CreateTicket opens a ticket with the user's name and email snapshotted.
func (s *SupportService) CreateTicket(ctx context.Context, userID string, in TicketInput) (*models.SupportTicket, error) {
	if !in.IssueType.Valid() {
		return nil, fmt.Errorf("unknown issue type %q: %w", in.IssueType, ErrInvalidInput)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, fmt.Errorf("description is required: %w", ErrInvalidInput)
	}

	var ticket *models.SupportTicket
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		var user models.UserProfile
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		now := time.Now().UTC()
		t := &models.SupportTicket{
			ID:             uuid.NewString(),
			UserID:         userID,
			UserName:       user.Name,
			UserEmail:      user.Email,
			IssueType:      in.IssueType,
			Description:    desc,
			Status:         models.TicketOpen,
			TournamentID:   in.TournamentID,
			TournamentName: in.TournamentName,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Infof("🎫 [SUPPORT] ticket %s opened by %s (%s)", ticket.ID, userID, ticket.IssueType)
	return ticket, nil
}

// AddMessage appends to a ticket conversation and bumps the ticket's UpdatedAt.
// Users may only post on their own tickets.
func (s *SupportService) AddMessage(ctx context.Context, ticketID, senderID string, sender models.SenderType, text string) (*models.SupportMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is empty: %w", ErrInvalidInput)
	}

	var msg *models.SupportMessage
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		var ticket models.SupportTicket
		if err := tx.First(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sender == models.SenderUser && ticket.UserID != senderID {
			return ErrNotFound
		}
		now := time.Now().UTC()
		m := &models.SupportMessage{
			ID:         uuid.NewString(),
			TicketID:   ticketID,
			SenderID:   senderID,
			SenderType: sender,
			Message:    text,
			Timestamp:  now,
		}
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("failed to add message: %w", err)
		}
		if err := tx.Model(&models.SupportTicket{}).Where("id = ?", ticketID).Update("updated_at", now).Error; err != nil {
			return fmt.Errorf("failed to touch ticket: %w", err)
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Notify != nil {
		s.Notify.Publish(ctx, notify.TicketChannel(ticketID), msg)
	}
	return msg, nil
}

// ListUserTickets returns a user's tickets, most recently active first.
func (s *SupportService) ListUserTickets(ctx context.Context, userID string) ([]models.SupportTicket, error) {
	db, ok := s.Store.Reader(ctx, "ListUserTickets")
	if !ok {
		return []models.SupportTicket{}, nil
	}
	var tickets []models.SupportTicket
	if err := db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// ListAllTickets is the admin inbox, optionally filtered by status.
func (s *SupportService) ListAllTickets(ctx context.Context, status models.TicketStatus) ([]models.SupportTicket, error) {
	db, ok := s.Store.Reader(ctx, "ListAllTickets")
	if !ok {
		return []models.SupportTicket{}, nil
	}
	q := db.Order("updated_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tickets []models.SupportTicket
	if err := q.Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// GetTicket loads a ticket with its messages oldest first.
func (s *SupportService) GetTicket(ctx context.Context, ticketID string) (*models.SupportTicket, error) {
	db, ok := s.Store.Reader(ctx, "GetTicket")
	if !ok {
		return nil, ErrNotFound
	}
	var ticket models.SupportTicket
	err := db.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("timestamp ASC")
	}).First(&ticket, "id = ?", ticketID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return &ticket, nil
}

func (s *SupportService) SetTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus) error {
	if status != models.TicketOpen && status != models.TicketSolved {
		return fmt.Errorf("unknown ticket status %q: %w", status, ErrInvalidInput)
	}
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&models.SupportTicket{}).Where("id = ?", ticketID).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update ticket: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.Log.Infof("[SUPPORT] ticket %s marked %s", ticketID, status)
	return nil
}
