package req

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary         //nolint:gochecknoglobals // skip
	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // skip
)

func Read(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apperr.WrapError(err, errcodes.ValidationError, "Invalid JSON")
	}

	if err := validate.StructCtx(r.Context(), dest); err != nil {
		return apperr.WrapError(err, errcodes.ValidationError, err.Error())
	}

	return nil
}
