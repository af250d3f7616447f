package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templates embed.FS

var notificationTmpl = template.Must(template.ParseFS(templates, "templates/notification.html"))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// RenderNotification builds the HTML body of a notification email.
func RenderNotification(data NotificationEmailData) (string, error) {
	var body bytes.Buffer
	if err := notificationTmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render notification email: %w", err)
	}
	return body.String(), nil
}

func (s *EmailSender) SendNotification(to, name, title, message, link string) error {
	body, err := RenderNotification(NotificationEmailData{
		Name:    name,
		Title:   title,
		Message: message,
		Link:    link,
	})
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", title)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}
