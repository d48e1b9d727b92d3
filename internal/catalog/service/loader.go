package service

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"consentd/internal/catalog/models"
	id "consentd/pkg/domain"
)

// catalogFile is the on-disk shape of a deployment-specific catalog.
type catalogFile struct {
	Activities []activityEntry `yaml:"activities"`
}

type activityEntry struct {
	ID                    string   `yaml:"id"`
	Name                  string   `yaml:"name"`
	Purpose               string   `yaml:"purpose"`
	LegalBasis            string   `yaml:"legal_basis"`
	DataCategories        []string `yaml:"data_categories"`
	DataSubjectCategories []string `yaml:"data_subject_categories"`
	Recipients            []string `yaml:"recipients"`
	TransferDestinations  []string `yaml:"transfer_destinations"`
	RetentionDays         int      `yaml:"retention_days"`
	SecurityMeasures      []string `yaml:"security_measures"`
}

func (e activityEntry) toModel() models.Activity {
	return models.Activity{
		ID:                    id.ActivityID(e.ID),
		Name:                  e.Name,
		Purpose:               e.Purpose,
		LegalBasis:            e.LegalBasis,
		DataCategories:        e.DataCategories,
		DataSubjectCategories: e.DataSubjectCategories,
		Recipients:            e.Recipients,
		TransferDestinations:  e.TransferDestinations,
		RetentionDays:         e.RetentionDays,
		SecurityMeasures:      e.SecurityMeasures,
	}
}

// ParseFile decodes a YAML catalog. ${VAR} references are expanded from
// the environment before decoding.
func ParseFile(data []byte) ([]models.Activity, error) {
	expanded := os.ExpandEnv(string(data))
	var file catalogFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	out := make([]models.Activity, 0, len(file.Activities))
	for _, e := range file.Activities {
		out = append(out, e.toModel())
	}
	return out, nil
}

// LoadFile reads a YAML catalog from disk and adds its activities. Activities
// that already exist are skipped; any invalid entry aborts the load.
func (s *Service) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}
	activities, err := ParseFile(data)
	if err != nil {
		return err
	}
	return s.addAll(ctx, activities)
}
