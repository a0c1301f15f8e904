package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tournament-wallet/database"
	"tournament-wallet/models"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ImageUploader stores an image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ErrUploadsDisabled is returned when an image arrives but no uploader is configured.
var ErrUploadsDisabled = errors.New("image uploads are not configured")

// Image is an optional upload attached to a create or update call.
type Image struct {
	Key         string
	ContentType string
	Body        io.Reader
}

type GameService struct {
	Store    *database.Client
	Uploader ImageUploader
	Log      slog.Logger
}

func NewGameService(store *database.Client, uploader ImageUploader, log slog.Logger) *GameService {
	return &GameService{Store: store, Uploader: uploader, Log: log}
}

// GameHint derives the image hint from a display name, e.g. "Free Fire MAX" -> "free_fire_max".
func GameHint(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

func (s *GameService) upload(ctx context.Context, img *Image) (string, error) {
	if img == nil {
		return "", nil
	}
	if s.Uploader == nil {
		return "", ErrUploadsDisabled
	}
	url, err := s.Uploader.Upload(ctx, img.Key, img.ContentType, img.Body)
	if err != nil {
		return "", err
	}
	s.Log.Debugf("[GAMES] uploaded %s", img.Key)
	return url, nil
}

// GameInput is the editable part of a game.
type GameInput struct {
	Name     string
	ImageURL string
}

// CreateGame stores a game. An uploaded image wins over ImageURL.
func (s *GameService) CreateGame(ctx context.Context, in GameInput, img *Image) (*models.Game, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("game name is required: %w", ErrInvalidInput)
	}
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}
	imageURL := in.ImageURL
	if url, err := s.upload(ctx, img); err != nil {
		return nil, err
	} else if url != "" {
		imageURL = url
	}

	game := &models.Game{
		ID:       uuid.NewString(),
		Name:     name,
		ImageURL: imageURL,
		Hint:     GameHint(name),
	}
	if err := db.Create(game).Error; err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	s.Log.Infof("🎮 [GAMES] created %s (%s)", game.Name, game.ID)
	return game, nil
}

// UpdateGame renames a game and/or replaces its image.
func (s *GameService) UpdateGame(ctx context.Context, id string, in GameInput, img *Image) (*models.Game, error) {
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}
	var game models.Game
	if err := db.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		game.Name = name
		game.Hint = GameHint(name)
	}
	if in.ImageURL != "" {
		game.ImageURL = in.ImageURL
	}
	if url, err := s.upload(ctx, img); err != nil {
		return nil, err
	} else if url != "" {
		game.ImageURL = url
	}

	if err := db.Save(&game).Error; err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	return &game, nil
}

// DeleteGame removes a game that no tournament references.
func (s *GameService) DeleteGame(ctx context.Context, id string) error {
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return err
	}
	var count int64
	if err := db.Model(&models.Tournament{}).Where("game_id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count tournaments: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("game still has %d tournaments: %w", count, ErrInvalidInput)
	}
	res := db.Delete(&models.Game{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete game: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.Log.Infof("[GAMES] deleted %s", id)
	return nil
}

// ListGames returns all games with their tournament counts.
func (s *GameService) ListGames(ctx context.Context) ([]models.Game, error) {
	db, ok := s.Store.Reader(ctx, "ListGames")
	if !ok {
		return []models.Game{}, nil
	}
	var games []models.Game
	if err := db.Order("name ASC").Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	type row struct {
		GameID string
		Count  int64
	}
	var counts []row
	if err := db.Model(&models.Tournament{}).
		Select("game_id, COUNT(*) AS count").
		Group("game_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count tournaments: %w", err)
	}
	byGame := make(map[string]int64, len(counts))
	for _, c := range counts {
		byGame[c.GameID] = c.Count
	}
	for i := range games {
		games[i].TournamentCount = byGame[games[i].ID]
	}
	return games, nil
}

// GetGame loads one game.
func (s *GameService) GetGame(ctx context.Context, id string) (*models.Game, error) {
	db, ok := s.Store.Reader(ctx, "GetGame")
	if !ok {
		return nil, ErrNotFound
	}
	var game models.Game
	if err := db.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if err := db.Model(&models.Tournament{}).Where("game_id = ?", id).Count(&game.TournamentCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return &game, nil
}

// SlideInput is the editable part of a carousel slide.
type SlideInput struct {
	Title       string
	Description string
	ImageURL    string
	SortOrder   *int
}

// CreateSlide adds a dashboard banner.
func (s *GameService) CreateSlide(ctx context.Context, in SlideInput, img *Image) (*models.CarouselSlide, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("slide title is required: %w", ErrInvalidInput)
	}
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}
	imageURL := in.ImageURL
	if url, err := s.upload(ctx, img); err != nil {
		return nil, err
	} else if url != "" {
		imageURL = url
	}
	slide := &models.CarouselSlide{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    imageURL,
		Hint:        GameHint(title),
	}
	if in.SortOrder != nil {
		slide.SortOrder = *in.SortOrder
	}
	if err := db.Create(slide).Error; err != nil {
		return nil, fmt.Errorf("failed to create slide: %w", err)
	}
	return slide, nil
}

// UpdateSlide edits a banner; empty fields are left alone.
func (s *GameService) UpdateSlide(ctx context.Context, id string, in SlideInput, img *Image) (*models.CarouselSlide, error) {
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}
	var slide models.CarouselSlide
	if err := db.First(&slide, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load slide: %w", err)
	}
	if t := strings.TrimSpace(in.Title); t != "" {
		slide.Title = t
		slide.Hint = GameHint(t)
	}
	if in.Description != "" {
		slide.Description = strings.TrimSpace(in.Description)
	}
	if in.ImageURL != "" {
		slide.ImageURL = in.ImageURL
	}
	if in.SortOrder != nil {
		slide.SortOrder = *in.SortOrder
	}
	if url, err := s.upload(ctx, img); err != nil {
		return nil, err
	} else if url != "" {
		slide.ImageURL = url
	}
	if err := db.Save(&slide).Error; err != nil {
		return nil, fmt.Errorf("failed to update slide: %w", err)
	}
	return &slide, nil
}

func (s *GameService) DeleteSlide(ctx context.Context, id string) error {
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return err
	}
	res := db.Delete(&models.CarouselSlide{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete slide: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSlides returns banners in display order.
func (s *GameService) ListSlides(ctx context.Context) ([]models.CarouselSlide, error) {
	db, ok := s.Store.Reader(ctx, "ListSlides")
	if !ok {
		return []models.CarouselSlide{}, nil
	}
	var slides []models.CarouselSlide
	if err := db.Order("sort_order ASC, created_at ASC").Find(&slides).Error; err != nil {
		return nil, fmt.Errorf("failed to list slides: %w", err)
	}
	return slides, nil
}

// UploadImage stores an arbitrary image (profile photos) and returns its URL.
func (s *GameService) UploadImage(ctx context.Context, img *Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("image is required: %w", ErrInvalidInput)
	}
	return s.upload(ctx, img)
}
