package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

// ErrModelUnauthorized is returned when the provider rejects our credentials.
// Retrying the same request cannot succeed.
var ErrModelUnauthorized = errors.New("model provider rejected credentials")

// ModelProvider defines the consumed language-model capability: given a
// structured prompt, return the raw text/JSON response. Transport and
// timeout failures surface as plain errors; interpreting the response is
// the caller's job.
type ModelProvider interface {
	Complete(ctx context.Context, req *entities.PromptRequest) (string, error)
}
