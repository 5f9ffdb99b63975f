// Package file provides file-based persistence for campaigns and
// onboarding sessions, used by tests and local development.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root         string
	campaignRepo *CampaignRepository
	sessionRepo  *SessionRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		campaignRepo: NewCampaignRepository(cleanRoot),
		sessionRepo:  NewSessionRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there
// is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Campaigns returns the campaign repository.
func (fp *Persistence) Campaigns() persistence.CampaignRepository {
	return fp.campaignRepo
}

// Sessions returns the session repository.
func (fp *Persistence) Sessions() persistence.SessionRepository {
	return fp.sessionRepo
}
