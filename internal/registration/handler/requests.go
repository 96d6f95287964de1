package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"checkpoint/internal/events"
	"checkpoint/internal/recognition"
	"checkpoint/internal/registration/aggregator"
	"checkpoint/internal/registration/models"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/middleware/device"
	"checkpoint/pkg/requestcontext"
)

// Multipart field names of a submission.
const (
	fieldIDCard    = "idCard"
	fieldVehicle   = "vehicle"
	fieldDirection = "type"
)

const defaultMaxMemory = 32 << 20

// reservedFields never become extra record fields.
var reservedFields = map[string]struct{}{
	fieldDirection:   {},
	"registrationId": {},
	"timestamp":      {},
	"identityData":   {},
	"plateData":      {},
	"images":         {},
	"submittedFrom":  {},

	events.PublishedAtField: {},
}

// parseRegisterRequest reads the multipart submission. Plain form fields
// other than type are returned as extra record fields.
func parseRegisterRequest(r *http.Request, maxBytes int64) (aggregator.Request, map[string]any, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxMemory
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return aggregator.Request{}, nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return aggregator.Request{}, nil, dErrors.New(dErrors.CodeBadRequest, "expected a multipart/form-data body")
	}

	direction, err := models.ParseDirection(r.FormValue(fieldDirection))
	if err != nil {
		return aggregator.Request{}, nil, dErrors.New(dErrors.CodeBadRequest, "type must be entry or exit")
	}

	identity, err := readImage(r, fieldIDCard)
	if err != nil {
		return aggregator.Request{}, nil, err
	}
	vehicle, err := readImage(r, fieldVehicle)
	if err != nil {
		return aggregator.Request{}, nil, err
	}

	extra := map[string]any{
		"submittedFrom": device.Describe(requestcontext.UserAgent(r.Context())),
	}
	for key, values := range r.MultipartForm.Value {
		if _, reserved := reservedFields[key]; reserved || len(values) == 0 {
			continue
		}
		if v := strings.TrimSpace(values[0]); v != "" {
			extra[key] = v
		}
	}

	return aggregator.Request{
		IdentityImage: identity,
		VehicleImage:  vehicle,
		Direction:     direction,
	}, extra, nil
}

func readImage(r *http.Request, field string) (recognition.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return recognition.Image{}, dErrors.New(dErrors.CodeBadRequest, field+" image is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return recognition.Image{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read "+field+" image")
	}
	if len(data) == 0 {
		return recognition.Image{}, dErrors.New(dErrors.CodeBadRequest, field+" image is empty")
	}
	return recognition.Image{Data: data, Filename: header.Filename}, nil
}

// searchQuery reads ?plate= and ?idNumber=.
func searchQuery(r *http.Request) models.Query {
	q := r.URL.Query()
	return models.Query{
		PlateNumber: strings.TrimSpace(q.Get("plate")),
		IDNumber:    strings.TrimSpace(q.Get("idNumber")),
	}
}
