package out

import (
	"context"
	"testing"

	appstatedto "ridesafe/internal/modules/appstate/dto"
	appstateusecase "ridesafe/internal/modules/appstate/usecase"
	"ridesafe/internal/modules/sos/domain"
)

func TestAppStateBridgePublishesSOSTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	state, err := appstateusecase.NewInteractor(ctx, nil, nil)
	if err != nil {
		t.Fatalf("new appstate: %v", err)
	}
	bridge := NewAppStateBridge(state, nil)

	if id := bridge.CurrentUserID(ctx); id != "" {
		t.Fatalf("expected empty identity before login, got %q", id)
	}
	if _, err := state.Dispatch(ctx, appstatedto.ActionInput{Type: "SET_USER", User: &appstatedto.UserInput{ID: "rider-7"}}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if id := bridge.CurrentUserID(ctx); id != "rider-7" {
		t.Fatalf("expected rider-7, got %q", id)
	}

	bridge.Publish(ctx, domain.Notification{Kind: domain.NotifySOSActivated})
	bridge.Publish(ctx, domain.Notification{Kind: domain.NotifyLocationUpdated, Location: &domain.Coordinate{Latitude: 19.07, Longitude: 72.87}})
	out := state.State(ctx)
	if !out.SOSActive || out.Location == nil || out.Location.Latitude != 19.07 {
		t.Fatalf("unexpected state after activation: %+v", out)
	}

	bridge.Publish(ctx, domain.Notification{Kind: domain.NotifyLocationUpdated})
	bridge.Publish(ctx, domain.Notification{Kind: domain.NotifySOSDeactivated})
	out = state.State(ctx)
	if out.SOSActive {
		t.Fatalf("expected sos inactive")
	}
	if out.Location == nil {
		t.Fatalf("location must persist after deactivation")
	}
}
