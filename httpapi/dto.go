package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/go-playground/validator/v10"
)

const birthDateLayout = "2006-01-02"

var (
	gmailPattern  = regexp.MustCompile(`^[^@]+@gmail\.com$`)
	otpPattern    = regexp.MustCompile(`^\d{6}$`)
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
)

var validate = newValidator()

type otpRequest struct {
	EmailID string `json:"emailId" validate:"required,email,gmail"`
}

type verifyOTPRequest struct {
	EmailID string `json:"emailId" validate:"required,email,gmail"`
	OTP     string `json:"otp" validate:"required,otp6"`
}

type signupRequest struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	EmailID      string `json:"emailId" validate:"required,email"`
	MobileNumber string `json:"mobileNumber" validate:"required,mobile10"`
	Password     string `json:"password" validate:"required,strongpassword"`
	BirthDate    string `json:"birthDate" validate:"required,datetime=2006-01-02,pastdate"`
	Role         string `json:"role" validate:"omitempty,role"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	EmailID     string `json:"emailId" validate:"required,email,gmail"`
	NewPassword string `json:"newPassword" validate:"required,strongpassword"`
}

// fieldMessages maps "<jsonField>.<tag>" to the message rendered for it. A
// key qualified with the request type ("loginRequest.password.required")
// takes precedence.
var fieldMessages = map[string]string{
	"loginRequest.password.required": "Please enter password",
	"emailId.required":               "emailId should not be empty",
	"emailId.email":                  "please enter valid emailId",
	"emailId.gmail":                  "please enter valid emailId",
	"otp.required":                   "otp should not be blank",
	"otp.otp6":                       "otp should be 6 digits",
	"firstName.required":             "firstName should not be blank",
	"lastName.required":              "lastName should not be blank",
	"mobileNumber.required":          "mobileNumber should not be blank",
	"mobileNumber.mobile10":          "mobileNumber should be 10 digits",
	"password.required":              "password should not be blank",
	"password.strongpassword":        bankAuth.PasswordPolicyMessage,
	"birthDate.required":             "birthDate should not be blank",
	"birthDate.datetime":             "birthDate should be formatted as yyyy-MM-dd",
	"birthDate.pastdate":             "birthDate should not be future date",
	"role.role":                      "role should be one of ADMIN, EMPLOYEE, CUSTOMER",
	"username.required":              "Please enter mobileNumber or emailId",
	"newPassword.required":           bankAuth.PasswordPolicyMessage,
	"newPassword.strongpassword":     bankAuth.PasswordPolicyMessage,
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("gmail", matchString(gmailPattern)))
	must(v.RegisterValidation("otp6", matchString(otpPattern)))
	must(v.RegisterValidation("mobile10", matchString(mobilePattern)))
	must(v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return bankAuth.PasswordMeetsPolicy(fl.Field().String())
	}))
	must(v.RegisterValidation("pastdate", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(birthDateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		return !d.After(time.Now().UTC())
	}))
	must(v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := bankAuth.ParseRole(fl.Field().String())
		return ok
	}))
	return v
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// decodeValid decodes the JSON body into dst and validates it. It returns the
// messages to render, or nil when dst is usable.
func decodeValid(r *http.Request, dst any) []string {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return []string{msgMalformedBody}
	}
	return validationMessages(validate.Struct(dst))
}

func validationMessages(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{msgMalformedBody}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Namespace()+"."+fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, fe.Field()+" is invalid")
	}
	return out
}

func (s signupRequest) toEngine() bankAuth.SignupRequest {
	// Both fields were validated by decodeValid.
	birth, _ := time.Parse(birthDateLayout, s.BirthDate)
	role, _ := bankAuth.ParseRole(s.Role)
	return bankAuth.SignupRequest{
		FirstName:    strings.TrimSpace(s.FirstName),
		LastName:     strings.TrimSpace(s.LastName),
		Email:        s.EmailID,
		MobileNumber: s.MobileNumber,
		Password:     s.Password,
		BirthDate:    birth,
		Role:         role,
	}
}
