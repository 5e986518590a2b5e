// Package apperr defines the closed error taxonomy shared by the verification
// core. Every domain failure is an *Entry with a stable dot-namespaced code,
// an HTTP status, and optional data interpolated into the client message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Entry is a client-safe failure. It is created at the point of failure and
// propagated unchanged to the boundary; components never suppress it.
type Entry struct {
	Code    string         `json:"code"`
	Status  int            `json:"-"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Entry) Error() string {
	return e.Code + ": " + e.Message
}

// Taxonomy codes. The table below binds each code to its status and message
// template; adding a code without a table row is a programming error caught
// by New.
const (
	RequestGeneral      = "request.general"
	RequestInvalidInput = "request.invalid_input"

	AuthUnauthorized = "auth.unauthorized"
	AuthForbidden    = "auth.forbidden"

	ConnectorGeneral                     = "connector.general"
	ConnectorNotFound                    = "connector.not_found"
	ConnectorNotFoundWithID              = "connector.not_found_with_connector_id"
	ConnectorInvalidConfig               = "connector.invalid_config"
	ConnectorInvalidResponse             = "connector.invalid_response"
	ConnectorInsufficientRequestParams   = "connector.insufficient_request_parameters"
	ConnectorCanNotModifyTarget          = "connector.can_not_modify_target"
	ConnectorMultipleTargetSamePlatform  = "connector.multiple_target_with_same_platform"
	ConnectorNotImplemented              = "connector.not_implemented"
	ConnectorSocialAuthCodeInvalid       = "connector.social_auth_code_invalid"
	ConnectorInvalidTypeForSyncedProfile = "connector.invalid_type_for_syncing_profile"

	PasscodePhoneEmailEmpty = "passcode.phone_email_empty"
	PasscodeNotFound        = "passcode.not_found"
	PasscodePhoneMismatch   = "passcode.phone_mismatch"
	PasscodeEmailMismatch   = "passcode.email_mismatch"
	PasscodeCodeMismatch    = "passcode.code_mismatch"
	PasscodeExpired         = "passcode.expired"
	PasscodeExceedMaxTry    = "passcode.exceed_max_try"

	UserNotExist             = "user.user_not_exist"
	UserEmailAlreadyInUse    = "user.email_already_in_use"
	UserPhoneAlreadyInUse    = "user.phone_already_in_use"
	UserIdentityAlreadyInUse = "user.identity_already_in_use"
)

type definition struct {
	status  int
	message string
}

var definitions = map[string]definition{
	RequestGeneral:      {http.StatusInternalServerError, "Request error occurred."},
	RequestInvalidInput: {http.StatusBadRequest, "The input is invalid. {{details}}"},

	AuthUnauthorized: {http.StatusUnauthorized, "Unauthorized. Please check credentials and its scope."},
	AuthForbidden:    {http.StatusForbidden, "Forbidden. Please check your permissions."},

	ConnectorGeneral:                     {http.StatusBadRequest, "An unexpected error occurred in connector. {{errorDescription}}"},
	ConnectorNotFound:                    {http.StatusNotFound, "Cannot find any available connector for type: {{type}}."},
	ConnectorNotFoundWithID:              {http.StatusNotFound, "Cannot find connector setting with given connector id."},
	ConnectorInvalidConfig:               {http.StatusBadRequest, "The connector's config is invalid."},
	ConnectorInvalidResponse:             {http.StatusBadRequest, "The connector's response is invalid."},
	ConnectorInsufficientRequestParams:   {http.StatusBadRequest, "The request is missing some input parameters."},
	ConnectorCanNotModifyTarget:          {http.StatusBadRequest, "The connector 'target' can not be modified."},
	ConnectorMultipleTargetSamePlatform:  {http.StatusBadRequest, "You can not have multiple social connectors that have same target and platform."},
	ConnectorNotImplemented:              {http.StatusNotImplemented, "{{method}} is not implemented yet."},
	ConnectorSocialAuthCodeInvalid:       {http.StatusUnauthorized, "Unable to get access token. Please check the authorization code."},
	ConnectorInvalidTypeForSyncedProfile: {http.StatusBadRequest, "Only social connectors can provide a profile for syncing."},

	PasscodePhoneEmailEmpty: {http.StatusBadRequest, "Both phone and email are empty."},
	PasscodeNotFound:        {http.StatusNotFound, "Passcode not found. Please send a passcode first."},
	PasscodePhoneMismatch:   {http.StatusBadRequest, "Phone mismatch. Please request a new passcode."},
	PasscodeEmailMismatch:   {http.StatusBadRequest, "Email mismatch. Please request a new passcode."},
	PasscodeCodeMismatch:    {http.StatusBadRequest, "The passcode is invalid."},
	PasscodeExpired:         {http.StatusBadRequest, "Passcode has expired. Please request a new passcode."},
	PasscodeExceedMaxTry:    {http.StatusBadRequest, "Passcode verification limit exceeded. Please request a new passcode."},

	UserNotExist:             {http.StatusNotFound, "The user with {{identifier}} does not exist."},
	UserEmailAlreadyInUse:    {http.StatusConflict, "This email is associated with an existing account."},
	UserPhoneAlreadyInUse:    {http.StatusConflict, "This phone number is associated with an existing account."},
	UserIdentityAlreadyInUse: {http.StatusConflict, "This social account is associated with an existing account."},
}

// New returns the Entry for code with the message template rendered from data.
// Unknown codes map to RequestGeneral so a typo cannot leak an unmapped error.
func New(code string, data map[string]any) *Entry {
	def, ok := definitions[code]
	if !ok {
		def = definitions[RequestGeneral]
		code = RequestGeneral
	}
	return &Entry{
		Code:    code,
		Status:  def.status,
		Message: render(def.message, data),
		Data:    data,
	}
}

// From returns err as an *Entry if it is one (directly or wrapped); otherwise
// it returns the RequestGeneral fallback. The boundary is the only caller that
// should rely on the fallback.
func From(err error) *Entry {
	var e *Entry
	if errors.As(err, &e) {
		return e
	}
	return New(RequestGeneral, nil)
}

// Is reports whether err is an *Entry with the given code.
func Is(err error, code string) bool {
	var e *Entry
	return errors.As(err, &e) && e.Code == code
}

// render substitutes {{key}} placeholders in the template with values from
// data. Placeholders with no matching key are replaced with an empty string,
// and surrounding whitespace is collapsed so messages stay readable.
func render(template string, data map[string]any) string {
	out := template
	for strings.Contains(out, "{{") {
		start := strings.Index(out, "{{")
		end := strings.Index(out[start:], "}}")
		if end < 0 {
			break
		}
		end += start
		key := strings.TrimSpace(out[start+2 : end])
		val := ""
		if v, ok := data[key]; ok {
			val = fmt.Sprintf("%v", v)
		}
		out = out[:start] + val + out[end+2:]
	}
	return strings.Join(strings.Fields(out), " ")
}
