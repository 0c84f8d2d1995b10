package notifier

import (
	"embed"
	htmltemplate "html/template"
	"text/template"
)

//go:embed templates
var templateFS embed.FS

var (
	confirmationText = template.Must(template.ParseFS(templateFS, "templates/confirmation.txt.tmpl"))
	confirmationHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/confirmation.html.tmpl"))
	adminText        = template.Must(template.ParseFS(templateFS, "templates/admin.txt.tmpl"))
	adminHTML        = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/admin.html.tmpl"))
)
