package email

import (
	"testing"

	"conduit/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderer_Render(t *testing.T) {
	r := NewTemplateRenderer()

	t.Run("welcome", func(t *testing.T) {
		subject, html, text, err := r.Render("welcome", &domain.WelcomeEmailData{Email: "ana@example.com", FullName: "Ana", AppName: "Conduit"})
		require.NoError(t, err)
		assert.Equal(t, "Welcome to Conduit", subject)
		assert.Contains(t, html, "<strong>ana@example.com</strong>")
		assert.Contains(t, text, "Hi Ana,")
	})

	t.Run("invitation escapes html", func(t *testing.T) {
		data := &domain.EventInvitationEmailData{
			Email:       "bo@example.com",
			InviteeName: "Bo",
			InviterName: "Ana",
			EventTitle:  "Picnic",
			Message:     "<b>bring snacks</b>",
			AppName:     "Conduit",
		}
		subject, html, text, err := r.Render("event_invitation", data)
		require.NoError(t, err)
		assert.Equal(t, "Ana invited you to Picnic", subject)
		assert.Contains(t, html, "&lt;b&gt;bring snacks&lt;/b&gt;")
		assert.Contains(t, text, `"<b>bring snacks</b>"`)
	})

	t.Run("invitation without message", func(t *testing.T) {
		_, html, _, err := r.Render("event_invitation", &domain.EventInvitationEmailData{InviterName: "Ana", EventTitle: "Picnic"})
		require.NoError(t, err)
		assert.NotContains(t, html, "<blockquote")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, _, _, err := r.Render("missing", nil)
		require.Error(t, err)
	})
}
