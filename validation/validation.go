/*
Package validation checks case records before they are stored.

PURPOSE:
  One entry point, Validate(input, mode), used by drafts and commits.
  Input is normalized first (generic.NormalizeRecord), then found-at
  date/time are converted to DD.MM.YYYY / HH.MM. The normalized value is
  always returned, even when invalid, so the caller can echo what the user
  typed.

MODES:
  DRAFT:  format checks only (e-mail, date, time, status). A draft never
          fails for being incomplete.
  COMMIT: format checks plus required fields (case worker, found-at date,
          time and location, an item label, one finder contact).

RULES:
  Field rules are go-playground/validator struct tags on flat rule views.
  Error keys are the record's JSON paths ("foundAt.location"), messages
  are the German UI texts. The first message for a path wins.
*/
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Streuli81/LostTrack/generic"
)

type Mode string

const (
	ModeDraft  Mode = "DRAFT"
	ModeCommit Mode = "COMMIT"
)

// Result of Validate. Value is normalized regardless of OK.
type Result struct {
	OK     bool                `json:"ok"`
	Value  *generic.CaseRecord `json:"value"`
	Errors map[string]string   `json:"errors"`
}

// Err returns a *generic.ValidationError when the result is not OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &generic.ValidationError{Fields: r.Errors}
}

// =============================================================================
// RULE VIEWS
// =============================================================================

const msgFinderContact = "Finder: Name oder Telefon oder E-Mail ist erforderlich."
const msgItem = "Gegenstand auswählen oder manuell erfassen."

// commitRules are the required fields of a committed record.
type commitRules struct {
	CaseWorkerID  string `json:"caseWorker.id" validate:"required"`
	FoundDate     string `json:"foundAt.date" validate:"required"`
	FoundTime     string `json:"foundAt.time" validate:"required"`
	FoundLocation string `json:"foundAt.location" validate:"required"`
	PredefinedKey string `json:"item.predefinedKey" validate:"required_without=ManualLabel"`
	ManualLabel   string `json:"item.manualLabel" validate:"required_without=PredefinedKey"`
	FinderName    string `json:"finder.name" validate:"required_without_all=FinderPhone FinderEmail"`
	FinderPhone   string `json:"finder.phone" validate:"required_without_all=FinderName FinderEmail"`
	FinderEmail   string `json:"finder.email" validate:"required_without_all=FinderName FinderPhone"`
}

// formatRules apply in every mode.
type formatRules struct {
	FinderEmail string `json:"finder.email" validate:"omitempty,email"`
	FoundDate   string `json:"foundAt.date" validate:"omitempty,lt_date"`
	FoundTime   string `json:"foundAt.time" validate:"omitempty,lt_time"`
	Status      string `json:"status" validate:"lt_status"`
}

// messages maps "path|tag" (or just "path") to the user-facing text.
var messages = map[string]string{
	"caseWorker.id":         "Sachbearbeiter muss ausgewählt/erfasst werden.",
	"foundAt.date|required": "Funddatum ist Pflicht.",
	"foundAt.time|required": "Fundzeit ist Pflicht.",
	"foundAt.location":      "Fundort ist Pflicht.",
	"item.predefinedKey":    msgItem,
	"item.manualLabel":      msgItem,
	"finder.name":           msgFinderContact,
	"finder.phone":          msgFinderContact,

	"finder.email|required_without_all": msgFinderContact,
	"finder.email|email":                "E-Mail Format ist ungültig.",

	"foundAt.date|lt_date": "Datum ungültig. Erlaubt: DD.MM.YYYY, DD-MM-YYYY, DD/MM/YYYY oder YYYY-MM-DD.",
	"foundAt.time|lt_time": "Zeit ungültig. Erlaubt: HH.MM, HH:MM oder HHMM (24h).",
	"status":               "Ungültiger Status.",
}

func message(path, tag string) string {
	if m, ok := messages[path+"|"+tag]; ok {
		return m
	}
	if m, ok := messages[path]; ok {
		return m
	}
	return "Ungültiger Wert."
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "lt_date", func(fl validator.FieldLevel) bool {
		_, ok := generic.NormalizeDate(fl.Field().String())
		return ok
	})
	mustRegister(v, "lt_time", func(fl validator.FieldLevel) bool {
		_, ok := generic.NormalizeTime(fl.Field().String())
		return ok
	})
	mustRegister(v, "lt_status", func(fl validator.FieldLevel) bool {
		_, ok := generic.ParseStatus(fl.Field().String())
		return ok
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// =============================================================================
// VALIDATE
// =============================================================================

// Validate normalizes input and checks it for mode. A nil input is
// treated as an empty record.
func Validate(input *generic.CaseRecord, mode Mode) Result {
	if input == nil {
		input = &generic.CaseRecord{}
	}
	value := generic.NormalizeRecord(input)

	rawDate, rawTime := value.FoundAt.Date, value.FoundAt.Time
	if d, ok := generic.NormalizeDate(rawDate); ok {
		value.FoundAt.Date = d
	}
	if t, ok := generic.NormalizeTime(rawTime); ok {
		value.FoundAt.Time = t
	}

	errs := map[string]string{}
	if mode == ModeCommit {
		collect(errs, validate.Struct(commitRules{
			CaseWorkerID:  value.CaseWorker.ID,
			FoundDate:     value.FoundAt.Date,
			FoundTime:     value.FoundAt.Time,
			FoundLocation: value.FoundAt.Location,
			PredefinedKey: value.Item.PredefinedKey,
			ManualLabel:   value.Item.ManualLabel,
			FinderName:    value.Finder.DisplayName(),
			FinderPhone:   partyField(value.Finder, func(p *generic.Party) string { return p.Phone }),
			FinderEmail:   partyField(value.Finder, func(p *generic.Party) string { return p.Email }),
		}))
	}
	collect(errs, validate.Struct(formatRules{
		FinderEmail: partyField(value.Finder, func(p *generic.Party) string { return p.Email }),
		FoundDate:   rawDate,
		FoundTime:   rawTime,
		Status:      string(value.Status),
	}))

	return Result{OK: len(errs) == 0, Value: value, Errors: errs}
}

func partyField(p *generic.Party, get func(*generic.Party) string) string {
	if p == nil {
		return ""
	}
	return get(p)
}

func collect(errs map[string]string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs[""] = err.Error()
		return
	}
	for _, fe := range verrs {
		path := fe.Field()
		if _, exists := errs[path]; exists {
			continue
		}
		errs[path] = message(path, fe.Tag())
	}
}
