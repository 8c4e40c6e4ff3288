package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ELMGHARU/detection-tracker/pkg/util"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type envelope map[string]interface{}

func (api *navigationAPI) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)

	return nil
}

func (api *navigationAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}}

	if err := api.writeJSON(w, status, env, nil); err != nil {
		api.log.Error("failed to write error response", zap.Error(err),
			zap.String("url", r.URL.String()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *navigationAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (api *navigationAPI) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (api *navigationAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("internal server error", zap.Error(err), zap.String("url", r.URL.String()))
	api.errorResponse(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

// getStatusCode maps a domain error to its http response.
func (api *navigationAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *util.Error
	if !errors.As(err, &domainErr) {
		api.ServerErrorResponse(w, r, err)
		return
	}

	switch domainErr.Code() {
	case util.ErrBadParamInput:
		api.BadRequestResponse(w, r, err)
	case util.ErrNotFound, util.ErrNoRoute:
		api.NotFoundResponse(w, r, err)
	case util.ErrConflict, util.ErrInvalidState:
		api.errorResponse(w, r, http.StatusConflict, err.Error())
	case util.ErrPositionUnavailable:
		api.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		api.ServerErrorResponse(w, r, err)
	}
}

func translateError(err error, trans ut.Translator) []error {
	if err == nil {
		return nil
	}

	validatorErrs := err.(validator.ValidationErrors)
	errs := make([]error, 0, len(validatorErrs))
	for _, e := range validatorErrs {
		translatedErr := errors.New(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}
