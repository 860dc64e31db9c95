package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/parameter"
	"github.com/stationkit/stationkit/internal/request"
)

// queryParams reads the request fields shared by the GET endpoints.
func queryParams(q url.Values) (string, request.Params) {
	p := request.Params{
		Parameters: specs(q["parameter"]),
		Resolution: q.Get("resolution"),
		Periods:    nonEmpty(q["period"]),
	}
	if v := q.Get("start_date"); v != "" {
		p.StartDate = v
	}
	if v := q.Get("end_date"); v != "" {
		p.EndDate = v
	}
	return strings.TrimSpace(q.Get("provider")), p
}

// bodyParams reads the request fields of a JSON body.
func bodyParams(b models.RequestParams) (string, request.Params) {
	p := request.Params{
		Parameters: specs(b.Parameters),
		Resolution: b.Resolution,
		Periods:    nonEmpty(b.Periods),
	}
	if b.StartDate != "" {
		p.StartDate = b.StartDate
	}
	if b.EndDate != "" {
		p.EndDate = b.EndDate
	}
	return strings.TrimSpace(b.Provider), p
}

// specs parses "name" and "name:dataset" tokens. Comma separated lists are
// accepted as well as repeated values.
func specs(values []string) []parameter.Spec {
	var out []parameter.Spec
	for _, v := range values {
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				out = append(out, parameter.ParseSpec(token))
			}
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				out = append(out, token)
			}
		}
	}
	return out
}

// fieldReader collects conversion errors of query fields.
type fieldReader struct {
	q      url.Values
	errors []models.FieldError
}

func (f *fieldReader) has(name string) bool {
	return strings.TrimSpace(f.q.Get(name)) != ""
}

func (f *fieldReader) required(name string) string {
	v := strings.TrimSpace(f.q.Get(name))
	if v == "" {
		f.errors = append(f.errors, models.FieldError{Field: name, Message: "required", Code: models.CodeRequired})
	}
	return v
}

func (f *fieldReader) float(name string) float64 {
	v := f.required(name)
	if v == "" {
		return 0
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		f.errors = append(f.errors, models.FieldError{Field: name, Message: "must be a number", Code: models.CodeInvalid})
	}
	return n
}

func (f *fieldReader) int(name string) int {
	v := f.required(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.errors = append(f.errors, models.FieldError{Field: name, Message: "must be an integer", Code: models.CodeInvalid})
	}
	return n
}

func (f *fieldReader) floatOr(name string, def float64) float64 {
	if !f.has(name) {
		return def
	}
	return f.float(name)
}

func (f *fieldReader) boolOr(name string, def bool) bool {
	if !f.has(name) {
		return def
	}
	b, err := cast.ToBoolE(strings.TrimSpace(f.q.Get(name)))
	if err != nil {
		f.errors = append(f.errors, models.FieldError{Field: name, Message: "must be a boolean", Code: models.CodeInvalid})
	}
	return b
}

func (f *fieldReader) valid() bool {
	return len(f.errors) == 0
}
