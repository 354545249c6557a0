package supabase

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"agency-portal-backend/internal/models"
)

// ProfileClient reads client profiles through PostgREST.
type ProfileClient struct {
	client *supabase.Client
}

func NewProfileClient(client *supabase.Client) *ProfileClient {
	return &ProfileClient{client: client}
}

// GetProfile returns nil without error when the user has no profile row.
func (p *ProfileClient) GetProfile(userID uuid.UUID) (*models.ClientProfile, error) {
	var rows []models.ClientProfile
	_, err := p.client.From("profiles").
		Select("id,full_name,company_name,email", "", false).
		Eq("id", userID.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
