package in

import (
	"context"

	"ridesafe/internal/modules/appstate/dto"
)

type Usecase interface {
	Dispatch(ctx context.Context, input dto.ActionInput) (dto.StateOutput, error)
	State(ctx context.Context) dto.StateOutput
	CurrentUserID(ctx context.Context) string
}
