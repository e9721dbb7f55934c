package notifications

import "fmt"

// Template is a reusable notification body keyed by name
type Template struct {
	Title    string
	Body     string
	Category string
	Urgent   bool
}

// built-in templates; %s placeholders are filled positionally by RenderTemplate
var templates = map[string]Template{
	"welcome": {
		Title:    "Welcome!",
		Body:     "Hi %s, welcome aboard. We're glad to have you.",
		Category: "transactional",
	},
	"order_update": {
		Title:    "Order Update",
		Body:     "Your order %s is now %s.",
		Category: "transactional",
	},
	"promotion": {
		Title:    "Special Offer",
		Body:     "%s! Don't miss out.",
		Category: "marketing",
	},
	"reminder": {
		Title:    "Reminder",
		Body:     "Don't forget: %s",
		Category: "alerts",
	},
	"security": {
		Title:    "Security Alert",
		Body:     "A new sign-in to your account was detected from %s.",
		Category: "alerts",
		Urgent:   true,
	},
}

// TemplateNames lists the available template names
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	return names
}

// RenderTemplate builds a send request from a named template and its
// positional arguments
func RenderTemplate(name, userID string, args ...interface{}) (*SendRequest, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, newNotFoundError("unknown template %q", name)
	}
	return &SendRequest{
		UserID:   userID,
		Title:    tmpl.Title,
		Body:     fmt.Sprintf(tmpl.Body, args...),
		Category: tmpl.Category,
		Urgent:   tmpl.Urgent,
	}, nil
}
