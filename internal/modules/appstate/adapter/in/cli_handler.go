package in

import (
	"context"

	appstatedto "ridesafe/internal/modules/appstate/dto"
	appstatein "ridesafe/internal/modules/appstate/port/in"
)

type CLIHandler struct {
	usecase appstatein.Usecase
}

func NewCLIHandler(usecase appstatein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Show(ctx context.Context) appstatedto.StateOutput {
	return h.usecase.State(ctx)
}

func (h CLIHandler) ToggleTheme(ctx context.Context) (appstatedto.StateOutput, error) {
	return h.usecase.Dispatch(ctx, appstatedto.ActionInput{Type: "TOGGLE_THEME"})
}
