package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	welcomeTemplate       = "welcome.html"
	passwordResetTemplate = "password_reset.html"

	WelcomeSubject       = "Welcome to our platform"
	PasswordResetSubject = "Password reset requested"
)

// WelcomeData feeds the welcome e-mail.
type WelcomeData struct {
	ApplicationName  string
	FirstName        string
	VerificationLink string
}

// PasswordResetData feeds the password reset e-mail.
type PasswordResetData struct {
	ApplicationName string
	FirstName       string
	Link            string
}

func RenderWelcome(d WelcomeData) (string, error) {
	return render(welcomeTemplate, d)
}

func RenderPasswordReset(d PasswordResetData) (string, error) {
	return render(passwordResetTemplate, d)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
