// ABOUTME: Form parsing and validation for the install and password pages
// ABOUTME: Failed submissions are echoed back through the one-shot form key

package web

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
)

// FormEcho carries a rejected submission back to the form page through the
// session. Secrets are never included in Data.
type FormEcho struct {
	Data   map[string]string `json:"data"`
	Errors map[string]string `json:"errors"`
}

// stashFormEcho stores the echo in the session as a JSON string so it
// survives the round trip through the session store unchanged.
func stashFormEcho(session *Session, echo *FormEcho) {
	encoded, err := json.Marshal(echo)
	if err != nil {
		return
	}
	session.Set(sessionKeyForm, string(encoded))
}

// popFormEcho consumes the stored echo, nil when there is none. Reading
// removes it; a refresh renders a clean form.
func popFormEcho(session *Session) *FormEcho {
	encoded := session.PopString(sessionKeyForm)
	if encoded == "" {
		return nil
	}
	var echo FormEcho
	if err := json.Unmarshal([]byte(encoded), &echo); err != nil {
		return nil
	}
	return &echo
}

// InstallForm is the first-run setup submission.
type InstallForm struct {
	Organization string
	Email        string
	Name         string
	Password     string
	Confirm      string
}

// parseInstallForm reads and validates the install submission. A non-nil
// echo means the form was rejected.
func parseInstallForm(r *http.Request) (*InstallForm, *FormEcho) {
	form := &InstallForm{
		Organization: strings.TrimSpace(r.PostFormValue("organization")),
		Email:        strings.TrimSpace(strings.ToLower(r.PostFormValue("email"))),
		Name:         strings.TrimSpace(r.PostFormValue("name")),
		Password:     r.PostFormValue("password"),
		Confirm:      r.PostFormValue("confirm_password"),
	}

	errs := map[string]string{}
	if form.Organization == "" {
		errs["organization"] = "Organization name is required."
	}
	if form.Email == "" {
		errs["email"] = "Email address is required."
	} else if _, err := mail.ParseAddress(form.Email); err != nil {
		errs["email"] = "Enter a valid email address."
	}
	if form.Name == "" {
		errs["name"] = "Name is required."
	}
	if msg := validatePassword(form.Password); msg != "" {
		errs["password"] = msg
	} else if form.Password != form.Confirm {
		errs["confirm_password"] = "Passwords do not match."
	}

	if len(errs) > 0 {
		return nil, &FormEcho{
			Data: map[string]string{
				"organization": form.Organization,
				"email":        form.Email,
				"name":         form.Name,
			},
			Errors: errs,
		}
	}
	return form, nil
}

// PasswordForm is the forced password change submission.
type PasswordForm struct {
	Password string
}

func parsePasswordForm(r *http.Request) (*PasswordForm, *FormEcho) {
	form := &PasswordForm{Password: r.PostFormValue("password")}
	confirm := r.PostFormValue("confirm_password")

	errs := map[string]string{}
	if msg := validatePassword(form.Password); msg != "" {
		errs["password"] = msg
	} else if form.Password != confirm {
		errs["confirm_password"] = "Passwords do not match."
	}

	if len(errs) > 0 {
		return nil, &FormEcho{Data: map[string]string{}, Errors: errs}
	}
	return form, nil
}

func validatePassword(password string) string {
	if password == "" {
		return "Password is required."
	}
	if len(password) < 8 {
		return "Password must be at least 8 characters."
	}
	return ""
}
