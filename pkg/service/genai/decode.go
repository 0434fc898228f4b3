package genai

import (
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

type validator interface {
	Validate() error
}

// Decode unmarshals raw into each target and runs its Validate method when it has one.
// Failures are parse failures: the model produced JSON the domain cannot accept.
func Decode(raw json.RawMessage, targets ...any) error {
	for _, dst := range targets {
		if err := json.Unmarshal(raw, dst); err != nil {
			return goerr.Wrap(err, "failed to decode model response",
				goerr.V("target", fmt.Sprintf("%T", dst)),
				goerr.T(ErrTagParse))
		}
		if v, ok := dst.(validator); ok {
			if err := v.Validate(); err != nil {
				return goerr.Wrap(err, "decoded model response is invalid",
					goerr.V("target", fmt.Sprintf("%T", dst)),
					goerr.T(ErrTagParse))
			}
		}
	}
	return nil
}
