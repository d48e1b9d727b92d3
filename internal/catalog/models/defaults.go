package models

// DefaultActivities is the catalog every deployment starts with.
func DefaultActivities() []Activity {
	return []Activity{
		{
			ID:                    "user_registration",
			Name:                  "User registration and authentication",
			Purpose:               "Create and secure user accounts",
			LegalBasis:            "contract",
			DataCategories:        []string{"identity", "contact", "credentials"},
			DataSubjectCategories: []string{"app_users"},
			Recipients:            []string{"internal_identity_service"},
			RetentionDays:         1095,
			SecurityMeasures:      []string{"encryption_at_rest", "tls", "access_control"},
		},
		{
			ID:                    "health_data_processing",
			Name:                  "Health data processing",
			Purpose:               "Provide personalised health insights",
			LegalBasis:            "consent",
			DataCategories:        []string{"health", "biometric", "activity"},
			DataSubjectCategories: []string{"app_users"},
			Recipients:            []string{"internal_analytics"},
			RetentionDays:         730,
			SecurityMeasures:      []string{"encryption_at_rest", "pseudonymisation", "access_logging"},
		},
		{
			ID:                    "analytics",
			Name:                  "Usage analytics",
			Purpose:               "Improve product features from aggregated usage",
			LegalBasis:            "consent",
			DataCategories:        []string{"usage", "device"},
			DataSubjectCategories: []string{"app_users"},
			Recipients:            []string{"analytics_provider"},
			TransferDestinations:  []string{"US"},
			RetentionDays:         365,
			SecurityMeasures:      []string{"anonymisation", "tls"},
		},
		{
			ID:                    "notifications",
			Name:                  "Notifications and communications",
			Purpose:               "Send reminders and service messages",
			LegalBasis:            "legitimate_interests",
			DataCategories:        []string{"contact", "preferences"},
			DataSubjectCategories: []string{"app_users"},
			Recipients:            []string{"push_provider"},
			RetentionDays:         180,
			SecurityMeasures:      []string{"tls", "access_control"},
		},
	}
}
