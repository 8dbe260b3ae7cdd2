package ui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/crm"
)

const (
	maxUploadBytes = 16 << 20
	refreshEvent   = "crm:refresh"
)

// setToast queues a toast for app.js through HX-Trigger. refresh also re-fetches the module table.
func setToast(w http.ResponseWriter, message, tone string, refresh bool) {
	payload := map[string]any{
		"toast": map[string]string{"message": message, "tone": tone},
	}
	if refresh {
		payload[refreshEvent] = true
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(raw))
}

// parseInput reads a create or edit submission. Files are only read for forms that declare file fields.
func parseInput(r *http.Request, def crm.Definition) (crm.Input, error) {
	multipartBody := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
	if multipartBody {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return crm.Input{}, err
		}
	} else if err := r.ParseForm(); err != nil {
		return crm.Input{}, err
	}

	values := url.Values{}
	for key, vals := range r.PostForm {
		if key == "csrf_token" {
			continue
		}
		values[key] = vals
	}
	in := crm.Input{Values: values}
	if !multipartBody || r.MultipartForm == nil {
		return in, nil
	}
	for _, field := range def.Form {
		if field.Type != crm.FieldFile {
			continue
		}
		headers := r.MultipartForm.File[field.Name]
		if len(headers) == 0 || headers[0].Size == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return crm.Input{}, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return crm.Input{}, err
		}
		in.Files = append(in.Files, collection.File{
			Field:       field.Name,
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return in, nil
}

// submittedValues flattens a submission back into form values for re-rendering.
func submittedValues(in crm.Input) map[string]string {
	out := make(map[string]string, len(in.Values))
	for key := range in.Values {
		out[key] = in.Values.Get(key)
	}
	return out
}

// failureStatus maps a store or validation failure to the status of the re-rendered fragment.
func failureStatus(err error) int {
	var inputErr *crm.InputError
	switch {
	case errors.As(err, &inputErr),
		errors.Is(err, collection.ErrValidation),
		errors.Is(err, collection.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	}
	switch code := collection.StatusCode(err); {
	case code == http.StatusNotFound:
		return http.StatusNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return code
	case code >= 400 && code < 500:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// failureMessage is the text shown for err.
func failureMessage(err error) string {
	var inputErr *crm.InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message
	}
	return collection.Message(err)
}

func failureField(err error) string {
	var inputErr *crm.InputError
	if errors.As(err, &inputErr) {
		return inputErr.Field
	}
	return ""
}
