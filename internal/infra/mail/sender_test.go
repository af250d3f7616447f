package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNotification(t *testing.T) {
	body, err := RenderNotification(NotificationEmailData{
		Name:    "Marta",
		Title:   "Lead inactiu: Fusteria Puig",
		Message: "El lead Fusteria Puig porta 9 dies sense activitat.",
		Link:    "https://lapublica.cat/gestor/leads/abc",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Hola Marta")
	assert.Contains(t, body, "Lead inactiu: Fusteria Puig")
	assert.Contains(t, body, `href="https://lapublica.cat/gestor/leads/abc"`)
}

func TestRenderNotificationWithoutLink(t *testing.T) {
	body, err := RenderNotification(NotificationEmailData{Name: "Pau", Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.NotContains(t, body, "Obre el lead")
}

func TestRenderNotificationEscapesMarkup(t *testing.T) {
	body, err := RenderNotification(NotificationEmailData{Name: "<b>x</b>", Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<b>x</b>")
	assert.Contains(t, body, "&lt;b&gt;x&lt;/b&gt;")
}
