package service

import (
	"errors"
	"strings"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
)

var (
	ErrInvalidStartup = errors.New("startup name must not be empty")
	ErrInvalidOffer   = errors.New("offer title must not be empty")
	ErrNotFounder     = errors.New("only the founder can modify a listing")
)

type StartupService struct {
	startupRepo repository.StartupRepositoryInterface
}

func NewStartupService(startupRepo repository.StartupRepositoryInterface) *StartupService {
	return &StartupService{startupRepo: startupRepo}
}

type StartupInput struct {
	Name    string `json:"name"`
	Pitch   string `json:"pitch"`
	Website string `json:"website"`
	Stage   string `json:"stage"`
}

func (s *StartupService) CreateListing(founderID uint, input StartupInput) (*models.Startup, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidStartup
	}
	startup := &models.Startup{
		FounderID: founderID,
		Name:      strings.TrimSpace(input.Name),
		Pitch:     input.Pitch,
		Website:   input.Website,
		Stage:     input.Stage,
	}
	if err := s.startupRepo.Create(startup); err != nil {
		return nil, err
	}
	return s.startupRepo.FindByID(startup.ID)
}

func (s *StartupService) GetListing(id uint) (*models.Startup, error) {
	return s.startupRepo.FindByID(id)
}

func (s *StartupService) ListListings(limit int) ([]models.Startup, error) {
	return s.startupRepo.List(limit)
}

func (s *StartupService) UpdateListing(startupID, founderID uint, input StartupInput) (*models.Startup, error) {
	startup, err := s.startupRepo.FindByID(startupID)
	if err != nil {
		return nil, err
	}
	if startup.FounderID != founderID {
		return nil, ErrNotFounder
	}

	if strings.TrimSpace(input.Name) != "" {
		startup.Name = strings.TrimSpace(input.Name)
	}
	if input.Pitch != "" {
		startup.Pitch = input.Pitch
	}
	if input.Website != "" {
		startup.Website = input.Website
	}
	if input.Stage != "" {
		startup.Stage = input.Stage
	}

	if err := s.startupRepo.Update(startup); err != nil {
		return nil, err
	}
	return startup, nil
}

func (s *StartupService) DeleteListing(startupID, founderID uint) error {
	return s.startupRepo.Delete(startupID, founderID)
}

type OfferInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

func (s *StartupService) AddOffer(startupID, founderID uint, input OfferInput) (*models.Startup, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrInvalidOffer
	}
	startup, err := s.startupRepo.FindByID(startupID)
	if err != nil {
		return nil, err
	}
	if startup.FounderID != founderID {
		return nil, ErrNotFounder
	}

	offer := &models.Offer{
		StartupID:   startupID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Contact:     input.Contact,
	}
	if err := s.startupRepo.CreateOffer(offer); err != nil {
		return nil, err
	}
	return s.startupRepo.FindByID(startupID)
}

func (s *StartupService) RemoveOffer(offerID, founderID uint) error {
	return s.startupRepo.DeleteOffer(offerID, founderID)
}
