package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ridesafe/internal/modules/appstate/domain"
	appstatedto "ridesafe/internal/modules/appstate/dto"
	appstatein "ridesafe/internal/modules/appstate/port/in"
	appstateout "ridesafe/internal/modules/appstate/port/out"
	apperrors "ridesafe/internal/platform/errors"
)

type Interactor struct {
	prefs  appstateout.PreferenceStore
	logger *zap.Logger

	mu    sync.Mutex
	state domain.State
}

// NewInteractor starts from the initial state with stored preferences
// applied. prefs may be nil, in which case nothing is persisted.
func NewInteractor(ctx context.Context, prefs appstateout.PreferenceStore, logger *zap.Logger) (appstatein.Usecase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := domain.Initial()
	if prefs != nil {
		loaded, err := prefs.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load preferences: %w", err)
		}
		state.Theme = loaded.Theme
	}
	return &Interactor{prefs: prefs, logger: logger.Named("appstate"), state: state}, nil
}

func (i *Interactor) Dispatch(ctx context.Context, input appstatedto.ActionInput) (appstatedto.StateOutput, error) {
	action := toAction(input)

	i.mu.Lock()
	defer i.mu.Unlock()
	next, err := domain.Reduce(i.state, action)
	if err != nil {
		return appstatedto.StateOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if next.Theme != i.state.Theme && i.prefs != nil {
		if err := i.prefs.Save(ctx, domain.Preferences{Theme: next.Theme}); err != nil {
			return appstatedto.StateOutput{}, err
		}
	}
	i.state = next
	i.logger.Debug("state action applied", zap.String("action", string(action.Type)))
	return toOutput(next), nil
}

func (i *Interactor) State(_ context.Context) appstatedto.StateOutput {
	i.mu.Lock()
	defer i.mu.Unlock()
	return toOutput(i.state)
}

// CurrentUserID is empty until a user is set.
func (i *Interactor) CurrentUserID(_ context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state.User == nil {
		return ""
	}
	return i.state.User.ID
}

func toAction(input appstatedto.ActionInput) domain.Action {
	action := domain.Action{Type: domain.ActionType(input.Type)}
	if input.User != nil {
		action.User = &domain.User{
			ID:     input.User.ID,
			Name:   input.User.Name,
			Email:  input.User.Email,
			Phone:  input.User.Phone,
			Gender: input.User.Gender,
		}
	}
	if input.Location != nil {
		action.Location = &domain.Location{Latitude: input.Location.Latitude, Longitude: input.Location.Longitude}
	}
	return action
}

func toOutput(state domain.State) appstatedto.StateOutput {
	out := appstatedto.StateOutput{
		Theme:           string(state.Theme),
		IsAuthenticated: state.IsAuthenticated,
		SOSActive:       state.SOSActive,
	}
	if state.User != nil {
		out.User = &appstatedto.UserOutput{
			ID:     state.User.ID,
			Name:   state.User.Name,
			Email:  state.User.Email,
			Phone:  state.User.Phone,
			Gender: state.User.Gender,
		}
	}
	if state.Location != nil {
		out.Location = &appstatedto.LocationOutput{Latitude: state.Location.Latitude, Longitude: state.Location.Longitude}
	}
	return out
}
