package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"saquabus.org/internal/geo"
)

type fieldErrors map[string][]string

func (fe fieldErrors) add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe fieldErrors) empty() bool {
	return len(fe) == 0
}

func parseFloatParam(r *http.Request, name string, fe fieldErrors) float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		fe.add(name, "is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fe.add(name, "must be a number")
		return 0
	}
	return v
}

// parseCoordinate reads a required latitude/longitude pair. Range checks are left to the
// request validation.
func parseCoordinate(r *http.Request, latName, lngName string, fe fieldErrors) geo.Coordinate {
	return geo.Coordinate{
		Latitude:  parseFloatParam(r, latName, fe),
		Longitude: parseFloatParam(r, lngName, fe),
	}
}

func parseOptionalInt(r *http.Request, name string, fe fieldErrors) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fe.add(name, "must be an integer")
		return 0
	}
	return v
}

const maxBodyBytes = 1 << 20

// readJSON decodes a single JSON object body, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return fmt.Errorf("body contains an incorrect JSON type for field %q", typeErr.Field)
		case errors.As(err, &maxErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxErr.Limit)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return err
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}
