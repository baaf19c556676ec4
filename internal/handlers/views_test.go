package handlers

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNl2br(t *testing.T) {
	assert.Equal(t, template.HTML("line1<br>line2"), Nl2br("line1\nline2"))
	assert.Equal(t, template.HTML("&lt;b&gt;bold&lt;/b&gt;"), Nl2br("<b>bold</b>"))
	assert.Equal(t, template.HTML(""), Nl2br(""))
}

func TestChatDisplay(t *testing.T) {
	assert.Equal(t, "525512345678", ChatDisplay("525512345678@c.us"))
	assert.Equal(t, "1234", ChatDisplay("1234@s.whatsapp.net"))
	assert.Equal(t, "someone@example.com", ChatDisplay("someone@example.com"))
	assert.Equal(t, "", ChatDisplay(""))
}
