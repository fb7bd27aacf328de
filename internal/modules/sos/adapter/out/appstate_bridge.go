package out

import (
	"context"

	"go.uber.org/zap"

	appstatedto "ridesafe/internal/modules/appstate/dto"
	appstatein "ridesafe/internal/modules/appstate/port/in"
	"ridesafe/internal/modules/sos/domain"
	sosout "ridesafe/internal/modules/sos/port/out"
)

// AppStateBridge turns SOS notifications into application state actions and
// reads the alert identity from the current user.
type AppStateBridge struct {
	state  appstatein.Usecase
	logger *zap.Logger
}

func NewAppStateBridge(state appstatein.Usecase, logger *zap.Logger) *AppStateBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppStateBridge{state: state, logger: logger}
}

var (
	_ sosout.StateSink    = (*AppStateBridge)(nil)
	_ sosout.UserIdentity = (*AppStateBridge)(nil)
)

func (b *AppStateBridge) Publish(ctx context.Context, notification domain.Notification) {
	input := appstatedto.ActionInput{}
	switch notification.Kind {
	case domain.NotifySOSActivated:
		input.Type = "ACTIVATE_SOS"
	case domain.NotifySOSDeactivated:
		input.Type = "DEACTIVATE_SOS"
	case domain.NotifyLocationUpdated:
		if notification.Location == nil {
			return
		}
		input.Type = "SET_LOCATION"
		input.Location = &appstatedto.LocationInput{Latitude: notification.Location.Latitude, Longitude: notification.Location.Longitude}
	default:
		return
	}
	if _, err := b.state.Dispatch(ctx, input); err != nil {
		b.logger.Warn("publish sos state", zap.String("action", input.Type), zap.Error(err))
	}
}

func (b *AppStateBridge) CurrentUserID(ctx context.Context) string {
	return b.state.CurrentUserID(ctx)
}
