package out

import (
	"context"

	"ridesafe/internal/modules/appstate/domain"
)

type PreferenceStore interface {
	Load(ctx context.Context) (domain.Preferences, error)
	Save(ctx context.Context, prefs domain.Preferences) error
}
